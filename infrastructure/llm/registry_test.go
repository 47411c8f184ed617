package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuild covers provider lookup, key resolution and default models.
func TestBuild(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		_, err := Build(Settings{Provider: "acme"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := Build(Settings{Provider: "openai"}, nil)
		assert.ErrorIs(t, err, ErrEmptyAPIKey)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("key from environment and default model", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "from-env")
		client, err := Build(Settings{Provider: "google", Timeout: time.Second}, newRecordingCollector())
		require.NoError(t, err)
		assert.Equal(t, GoogleDefaultModel, client.GetModel())
	})

	t.Run("explicit settings", func(t *testing.T) {
		client, err := Build(Settings{
			Provider:        "openai",
			APIKey:          "k",
			Model:           "gpt-4o",
			Temperature:     0.3,
			Timeout:         time.Second,
			MaxRetries:      2,
			BreakerFailures: 5,
			RateLimit:       10,
			Burst:           2,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", client.GetModel())
	})
}

// TestAPIKeyEnv names each provider's variable.
func TestAPIKeyEnv(t *testing.T) {
	assert.Equal(t, "OPENAI_API_KEY", APIKeyEnv("openai"))
	assert.Equal(t, "ANTHROPIC_API_KEY", APIKeyEnv("anthropic"))
	assert.Empty(t, APIKeyEnv("acme"))
}

// TestSupportedProviders is sorted and complete.
func TestSupportedProviders(t *testing.T) {
	assert.Equal(t, []string{"anthropic", "google", "openai"}, SupportedProviders())
}

// TestStandardMiddleware_TimeoutBoundsRetries verifies the deadline covers
// every attempt.
func TestStandardMiddleware_TimeoutBoundsRetries(t *testing.T) {
	core := newMockCoreLLM()
	core.err = NewProviderError("openai", ErrorTypeServerError, 503, "busy", nil)
	chain := StandardMiddleware(Settings{
		Provider:       "openai",
		Timeout:        50 * time.Millisecond,
		MaxRetries:     10,
		RetryBaseDelay: 20 * time.Millisecond,
		RetryMaxDelay:  20 * time.Millisecond,
	}, nil)
	client := NewClientFromCore(core, ClientConfig{Middleware: chain})

	start := time.Now()
	_, err := client.Complete(context.Background(), "q", nil)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Less(t, core.calls(), 11)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || core.calls() > 1)
}
