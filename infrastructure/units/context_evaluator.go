package units

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// DefaultContextWindow is the number of characters of retrieved context
// shown to the grader.
const DefaultContextWindow = 2000

// EvaluatorConfig configures a ContextEvaluator.
type EvaluatorConfig struct {
	CompletionConfig `yaml:",inline"`

	// ContextWindow truncates the context, in characters, before grading.
	ContextWindow int `yaml:"context_window" json:"context_window" validate:"min=1"`
}

// DefaultEvaluatorConfig returns a 2000 character window at temperature 0.3.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		CompletionConfig: DefaultCompletionConfig(),
		ContextWindow:    DefaultContextWindow,
	}
}

// gradeReply is the JSON object the grader is asked to return. Pointers
// make a missing score a validation failure rather than a zero.
type gradeReply struct {
	Relevance    *float64 `json:"relevance_score" validate:"required,min=0,max=1"`
	Completeness *float64 `json:"completeness_score" validate:"required,min=0,max=1"`
	Clarity      *float64 `json:"clarity_score" validate:"required,min=0,max=1"`
	Reasoning    string   `json:"reasoning"`
}

// ContextEvaluator grades retrieved context against a query with one
// completion call. It is stateless and safe for concurrent use.
type ContextEvaluator struct {
	completer ports.TextCompleter
	config    EvaluatorConfig
	log       logger.Logger
}

// NewContextEvaluator creates a ContextEvaluator. Zero values in config are
// replaced by defaults.
func NewContextEvaluator(completer ports.TextCompleter, config EvaluatorConfig, log logger.Logger) (*ContextEvaluator, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	if config.ContextWindow == 0 {
		config.ContextWindow = DefaultContextWindow
	}
	completion, err := config.CompletionConfig.withDefaults()
	if err != nil {
		return nil, err
	}
	config.CompletionConfig = completion
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid evaluator config: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ContextEvaluator{completer: completer, config: config, log: log}, nil
}

// Evaluate grades retrievedContext for query.
//
// Empty or whitespace-only context is graded POOR without a model call. A
// reply that cannot be parsed or holds out-of-range scores yields the
// neutral fallback grade. Only a completer failure is returned as an error.
func (e *ContextEvaluator) Evaluate(ctx context.Context, query, retrievedContext string) (domain.ContextEvaluation, error) {
	if strings.TrimSpace(retrievedContext) == "" {
		return domain.NoContextEvaluation(), nil
	}

	prompt, err := render(evaluationPrompt, struct {
		Query   string
		Context string
	}{
		Query:   query,
		Context: truncateRunes(retrievedContext, e.config.ContextWindow),
	})
	if err != nil {
		return domain.ContextEvaluation{}, err
	}

	response, err := e.completer.Complete(ctx, prompt, e.config.options())
	if err != nil {
		return domain.ContextEvaluation{}, fmt.Errorf("grade context: %w", err)
	}

	eval, err := parseGrade(response)
	if err != nil {
		e.log.Warn("context evaluation fell back to neutral scores", "error", err, "response_length", len(response))
		return domain.FallbackEvaluation(), nil
	}
	return eval, nil
}

func parseGrade(response string) (domain.ContextEvaluation, error) {
	raw := extractJSON(response)
	if raw == "" {
		return domain.ContextEvaluation{}, fmt.Errorf("%w: no JSON object in reply", domain.ErrEvaluationParse)
	}

	var reply gradeReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return domain.ContextEvaluation{}, fmt.Errorf("%w: %w", domain.ErrEvaluationParse, err)
	}
	if err := validate.Struct(reply); err != nil {
		return domain.ContextEvaluation{}, fmt.Errorf("%w: %w", domain.ErrEvaluationParse, err)
	}

	return domain.NewContextEvaluation(
		*reply.Relevance,
		*reply.Completeness,
		*reply.Clarity,
		strings.TrimSpace(reply.Reasoning),
		domain.EvaluationParsed,
	), nil
}

// truncateRunes keeps at most limit characters of s.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
