package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/iam-archie/school-chatbot/infrastructure/retrieval"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

var _ retrieval.QueryExpander = (*QueryExpander)(nil)

// QueryExpander adds synonyms and related concepts to a query for the last
// retrieval level.
type QueryExpander struct {
	completer ports.TextCompleter
	config    CompletionConfig
}

// NewQueryExpander creates a QueryExpander.
func NewQueryExpander(completer ports.TextCompleter, config CompletionConfig) (*QueryExpander, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &QueryExpander{completer: completer, config: config}, nil
}

// Expand returns the model's expanded query, or query itself when the
// reply is empty.
func (e *QueryExpander) Expand(ctx context.Context, query string) (string, error) {
	prompt, err := render(expandPrompt, struct{ Query string }{Query: query})
	if err != nil {
		return "", err
	}
	response, err := e.completer.Complete(ctx, prompt, e.config.options())
	if err != nil {
		return "", fmt.Errorf("expand query: %w", err)
	}
	if expanded := strings.TrimSpace(response); expanded != "" {
		return expanded, nil
	}
	return query, nil
}
