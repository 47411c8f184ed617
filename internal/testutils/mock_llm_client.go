// Package testutils provides deterministic test doubles for the pipeline's
// external services.
package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// Prompt markers that identify each pipeline unit's prompt.
const (
	PatternEvaluate = "Evaluate how well this context"
	PatternRefine   = "IMPROVED QUERY:"
	PatternExpand   = "Expand this student question"
	PatternAnswer   = "YOUR ANSWER:"
)

// Default replies for each unit prompt.
const (
	DefaultEvaluation = `{"relevance_score": 0.9, "completeness_score": 0.8, "clarity_score": 0.85, "reasoning": "The context answers the question directly."}`
	DefaultRefined    = "giving tree story meaning"
	DefaultExpanded   = "giving tree story generosity sacrifice love"
	DefaultAnswer     = "The Giving Tree is about a tree that loved a boy and gave him everything it had."
	DefaultFallback   = "This is a standard response for testing purposes."
)

// ErrEmptyPrompt is returned by MockLLMClient for an empty prompt.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// MockResponse is a scripted reply for prompts containing Pattern.
type MockResponse struct {
	// Pattern is matched as a case-sensitive substring of the prompt.
	Pattern string
	// Responses are returned in order; the last one repeats.
	Responses []string
	// Err is returned instead of a reply when set.
	Err error
}

// Call records one Complete invocation.
type Call struct {
	Pattern string
	Prompt  string
	Options map[string]any
}

// MockLLMClient implements ports.LLMClient with deterministic, pattern
// matched replies. Patterns are tried in the order they were added, most
// recent first, so a test can override a default. It is safe for
// concurrent use.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []*scriptedResponse
	calls     []Call
}

type scriptedResponse struct {
	MockResponse
	served int
}

// NewMockLLMClient returns a client that answers each unit prompt with a
// passing grade, a refined query, an expanded query and an answer.
func NewMockLLMClient(model string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.setupDefaultResponses()
	return m
}

func (m *MockLLMClient) setupDefaultResponses() {
	m.responses = nil
	m.add(MockResponse{Pattern: "", Responses: []string{DefaultFallback}})
	m.add(MockResponse{Pattern: PatternAnswer, Responses: []string{DefaultAnswer}})
	m.add(MockResponse{Pattern: PatternExpand, Responses: []string{DefaultExpanded}})
	m.add(MockResponse{Pattern: PatternRefine, Responses: []string{DefaultRefined}})
	m.add(MockResponse{Pattern: PatternEvaluate, Responses: []string{DefaultEvaluation}})
}

func (m *MockLLMClient) add(r MockResponse) {
	m.responses = append([]*scriptedResponse{{MockResponse: r}}, m.responses...)
}

// AddResponse registers a reply that takes precedence over earlier ones.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(r)
}

// OnEvaluate scripts the grader replies in order.
func (m *MockLLMClient) OnEvaluate(replies ...string) {
	m.AddResponse(MockResponse{Pattern: PatternEvaluate, Responses: replies})
}

// Fail makes every prompt containing pattern return err.
func (m *MockLLMClient) Fail(pattern string, err error) {
	m.AddResponse(MockResponse{Pattern: pattern, Err: err})
}

// Complete implements ports.TextCompleter.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.responses {
		if !strings.Contains(prompt, r.Pattern) {
			continue
		}
		m.calls = append(m.calls, Call{Pattern: r.Pattern, Prompt: prompt, Options: cloneOptions(options)})
		if r.Err != nil {
			return "", r.Err
		}
		if len(r.Responses) == 0 {
			return "", nil
		}
		idx := min(r.served, len(r.Responses)-1)
		r.served++
		return r.Responses[idx], nil
	}
	return "", nil
}

// EstimateTokens approximates four characters per token.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel returns the mock model identifier.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// SetModel updates the mock model identifier.
func (m *MockLLMClient) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

// CallCount returns how many prompts matched pattern.
func (m *MockLLMClient) CallCount(pattern string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Pattern == pattern {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of Complete calls that reached a reply.
func (m *MockLLMClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockLLMClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// LastCall returns the most recent call matching pattern.
func (m *MockLLMClient) LastCall(pattern string) (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Pattern == pattern {
			return m.calls[i], true
		}
	}
	return Call{}, false
}

// Reset clears recorded calls and restores the default replies.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.setupDefaultResponses()
}

func cloneOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}

// Verify interface compliance at compile time.
var _ ports.LLMClient = (*MockLLMClient)(nil)
