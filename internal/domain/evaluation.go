package domain

// EvaluationOutcome records where the scores of a ContextEvaluation came
// from, so a neutral grade can be told apart from a masked parse failure.
type EvaluationOutcome string

const (
	// EvaluationParsed means the grader reply was parsed and validated.
	EvaluationParsed EvaluationOutcome = "parsed"
	// EvaluationFallback means the reply was unusable and neutral defaults
	// were substituted.
	EvaluationFallback EvaluationOutcome = "fallback"
	// EvaluationSkipped means there was no context to grade and no model call
	// was made.
	EvaluationSkipped EvaluationOutcome = "skipped"
)

// NeutralScore is substituted for every axis when a grader reply cannot be
// parsed.
const NeutralScore = 0.5

// Fixed reasoning strings for evaluations that did not come from a grader.
const (
	ReasoningNoContext   = "No context retrieved"
	ReasoningParseFailed = "Evaluation parsing failed"
)

// ContextEvaluation grades retrieved context against a query.
// Tier and NeedsEscalation are always derived from the scores.
type ContextEvaluation struct {
	Relevance       float64           `json:"relevance_score"`
	Completeness    float64           `json:"completeness_score"`
	Clarity         float64           `json:"clarity_score"`
	Tier            QualityTier       `json:"quality_level"`
	NeedsEscalation bool              `json:"needs_escalation"`
	Reasoning       string            `json:"reasoning"`
	Outcome         EvaluationOutcome `json:"outcome"`
}

// NewContextEvaluation builds an evaluation whose tier follows the
// threshold rule.
func NewContextEvaluation(relevance, completeness, clarity float64, reasoning string, outcome EvaluationOutcome) ContextEvaluation {
	tier := TierFromScores(relevance, completeness, clarity)
	return ContextEvaluation{
		Relevance:       relevance,
		Completeness:    completeness,
		Clarity:         clarity,
		Tier:            tier,
		NeedsEscalation: tier.NeedsEscalation(),
		Reasoning:       reasoning,
		Outcome:         outcome,
	}
}

// NoContextEvaluation is the short-circuit grade for empty context.
func NoContextEvaluation() ContextEvaluation {
	return NewContextEvaluation(0, 0, 0, ReasoningNoContext, EvaluationSkipped)
}

// FallbackEvaluation is the neutral grade used when a reply cannot be parsed.
func FallbackEvaluation() ContextEvaluation {
	return NewContextEvaluation(NeutralScore, NeutralScore, NeutralScore, ReasoningParseFailed, EvaluationFallback)
}

// MeanScore returns the average of the three axes.
func (e ContextEvaluation) MeanScore() float64 {
	return (e.Relevance + e.Completeness + e.Clarity) / 3
}
