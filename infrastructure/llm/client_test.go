package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// TestNewClient validates the required fields and provider lookup.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		config   ClientConfig
		wantErr  string
	}{
		{"missing api key", "openai", ClientConfig{Model: "gpt-4o-mini"}, "API key cannot be empty"},
		{"missing model", "openai", ClientConfig{APIKey: "k"}, "model is required"},
		{"unknown provider", "acme", ClientConfig{APIKey: "k", Model: "m"}, "unknown provider: acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.provider, tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("registered provider", func(t *testing.T) {
		client, err := NewClient("openai", ClientConfig{APIKey: "k", Model: "gpt-4o-mini"})
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", client.GetModel())
	})
}

// TestClient_Complete verifies the reply, the default temperature and that
// caller options are not mutated.
func TestClient_Complete(t *testing.T) {
	core := newMockCoreLLM()
	client := NewClientFromCore(core, ClientConfig{Temperature: 0.3})

	opts := map[string]any{"system": "be kind"}
	reply, err := client.Complete(context.Background(), "What does shade mean?", opts)

	require.NoError(t, err)
	assert.Equal(t, "The tree gave the boy shade.", reply)
	assert.Equal(t, 0.3, core.options()["temperature"])
	assert.Equal(t, "be kind", core.options()["system"])
	_, mutated := opts["temperature"]
	assert.False(t, mutated, "caller options must not be modified")
}

// TestClient_Complete_ExplicitTemperature keeps the caller's value.
func TestClient_Complete_ExplicitTemperature(t *testing.T) {
	core := newMockCoreLLM()
	client := NewClientFromCore(core, ClientConfig{Temperature: 0.3})

	_, err := client.Complete(context.Background(), "q", map[string]any{"temperature": 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.9, core.options()["temperature"])
}

// TestClient_Complete_ServiceError verifies failures surface as outages
// with their cause intact.
func TestClient_Complete_ServiceError(t *testing.T) {
	core := newMockCoreLLM()
	core.err = NewProviderError("openai", ErrorTypeServerError, 503, "overloaded", nil)
	client := NewClientFromCore(core, ClientConfig{Temperature: -1})

	_, err := client.Complete(context.Background(), "q", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrServiceUnavailable))
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 503, pe.StatusCode)
	assert.Nil(t, core.options(), "negative temperature leaves options untouched")
}

// TestClient_MiddlewareOrder verifies the first middleware is outermost.
func TestClient_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &hookLLM{next: next, before: func() { order = append(order, name) }}
		}
	}

	client := NewClientFromCore(newMockCoreLLM(), ClientConfig{Middleware: []Middleware{tag("outer"), tag("inner")}})
	_, err := client.Complete(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

// TestClient_EstimateTokens uses the simple estimator by default.
func TestClient_EstimateTokens(t *testing.T) {
	client := NewClientFromCore(newMockCoreLLM(), ClientConfig{})

	n, err := client.EstimateTokens("abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, _ = client.EstimateTokens("")
	assert.Zero(t, n)
}

type hookLLM struct {
	next   CoreLLM
	before func()
}

func (h *hookLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	h.before()
	return h.next.DoRequest(ctx, prompt, opts)
}

func (h *hookLLM) GetModel() string  { return h.next.GetModel() }
func (h *hookLLM) SetModel(m string) { h.next.SetModel(m) }
