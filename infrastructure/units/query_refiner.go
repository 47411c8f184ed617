package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// QueryRefiner rewrites a query whose retrieved context graded poorly.
type QueryRefiner struct {
	completer ports.TextCompleter
	config    CompletionConfig
	log       logger.Logger
}

// NewQueryRefiner creates a QueryRefiner.
func NewQueryRefiner(completer ports.TextCompleter, config CompletionConfig, log logger.Logger) (*QueryRefiner, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &QueryRefiner{completer: completer, config: config, log: log}, nil
}

// Refine asks the model for a better search query, using the evaluation's
// reasoning as the problem statement. An empty reply keeps the original
// query.
func (r *QueryRefiner) Refine(ctx context.Context, query string, evaluation domain.ContextEvaluation) (string, error) {
	prompt, err := render(refinePrompt, struct {
		Query     string
		Reasoning string
	}{Query: query, Reasoning: evaluation.Reasoning})
	if err != nil {
		return "", err
	}

	response, err := r.completer.Complete(ctx, prompt, r.config.options())
	if err != nil {
		return "", fmt.Errorf("refine query: %w", err)
	}

	refined := strings.TrimSpace(response)
	if refined == "" {
		r.log.Warn("query refinement returned nothing, keeping original query")
		return query, nil
	}
	r.log.Debug("refined query", "original", query, "refined", refined)
	return refined, nil
}
