package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// AnswerGenerator writes the student-facing answer from retrieved context.
type AnswerGenerator struct {
	completer ports.TextCompleter
	config    CompletionConfig
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(completer ports.TextCompleter, config CompletionConfig) (*AnswerGenerator, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &AnswerGenerator{completer: completer, config: config}, nil
}

// Generate answers query from retrievedContext. systemInstructions is sent
// as the system message; DefaultSystemPrompt is used when it is blank. The
// context is passed in full.
func (g *AnswerGenerator) Generate(ctx context.Context, systemInstructions, retrievedContext, query string) (string, error) {
	prompt, err := render(answerPrompt, struct {
		Context string
		Query   string
	}{Context: retrievedContext, Query: query})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(systemInstructions) == "" {
		systemInstructions = DefaultSystemPrompt
	}
	options := g.config.options()
	options["system"] = systemInstructions

	answer, err := g.completer.Complete(ctx, prompt, options)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
