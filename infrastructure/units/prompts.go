package units

// DefaultSystemPrompt is the study-assistant persona sent with every answer
// generation call.
const DefaultSystemPrompt = `You are a friendly and helpful study assistant for 6th standard students.

Your role:
- Help students understand their English textbook lessons
- Explain concepts in simple, easy-to-understand language
- Be encouraging and supportive
- Use examples that students can relate to
- Keep responses brief but informative

Guidelines:
- Use simple words suitable for 6th grade students
- Be friendly and encouraging 😊
- If you don't know something, say "I'm not sure about that, but let's look at what we do know!"
- Always relate answers to the textbook content when possible

Remember: You're talking to young students, so be patient and kind!`

const evaluationPromptText = `Evaluate how well this context can answer the student's question.

STUDENT QUESTION: {{.Query}}

RETRIEVED CONTEXT:
{{.Context}}

Evaluate on 3 criteria (score 0.0 to 1.0):

1. RELEVANCE: How relevant is the context to the question?
2. COMPLETENESS: Does the context have enough information?
3. CLARITY: Is the context clear and understandable?

Respond in JSON:
{
    "relevance_score": <0.0-1.0>,
    "completeness_score": <0.0-1.0>,
    "clarity_score": <0.0-1.0>,
    "reasoning": "<brief explanation>"
}

JSON:`

const refinePromptText = `The student's question didn't find good answers. Improve the search query.

ORIGINAL QUESTION: {{.Query}}

PROBLEM: {{.Reasoning}}

Create a better search query that:
- Uses keywords from the English textbook
- Is more specific
- Might find better matching content

Return ONLY the improved query (no explanation):

IMPROVED QUERY:`

const expandPromptText = `Expand this student question with related educational terms:

Question: {{.Query}}

Add synonyms and related concepts for better textbook search.
Return only the expanded query:`

const answerPromptText = `Based on the textbook content below, answer the student's question.

TEXTBOOK CONTENT:
{{.Context}}

STUDENT QUESTION: {{.Query}}

Remember:
- Use simple language for 6th grade students
- Be friendly and encouraging
- If the textbook doesn't have the answer, say so politely

YOUR ANSWER:`

var (
	evaluationPrompt = mustParse("evaluation", evaluationPromptText)
	refinePrompt     = mustParse("refine", refinePromptText)
	expandPrompt     = mustParse("expand", expandPromptText)
	answerPrompt     = mustParse("answer", answerPromptText)
)
