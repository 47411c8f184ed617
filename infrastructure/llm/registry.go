package llm

import (
	"fmt"
	"os"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// ProviderSpec describes how to find credentials and a default model for
// a provider type.
type ProviderSpec struct {
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when Settings.Model is empty.
	DefaultModel string
}

// DefaultProviders lists the supported provider types.
var DefaultProviders = map[string]ProviderSpec{
	"openai":    {EnvVar: "OPENAI_API_KEY", DefaultModel: OpenAIDefaultModel},
	"anthropic": {EnvVar: "ANTHROPIC_API_KEY", DefaultModel: AnthropicDefaultModel},
	"google":    {EnvVar: "GEMINI_API_KEY", DefaultModel: GoogleDefaultModel},
}

// Settings is the resolved generation configuration. Zero values disable
// the corresponding middleware.
type Settings struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64

	// Timeout bounds one Complete call, retries included.
	Timeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// RateLimit is requests per second.
	RateLimit float64
	Burst     int

	BreakerFailures int
	BreakerCooldown time.Duration
}

// SupportedProviders returns the registered provider names, sorted.
func SupportedProviders() []string {
	names := make([]string, 0, len(DefaultProviders))
	for name := range DefaultProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// APIKeyEnv names the environment variable holding provider's API key, or
// "" for an unknown provider.
func APIKeyEnv(provider string) string {
	return DefaultProviders[provider].EnvVar
}

// Build creates a client for settings with the standard middleware chain:
// tracing, metrics, timeout, retry, circuit breaker and rate limiting, from
// outermost to innermost. A missing API key is read from the provider's
// environment variable.
func Build(settings Settings, collector ports.MetricsCollector) (*Client, error) {
	spec, ok := DefaultProviders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, supported: %v", settings.Provider, SupportedProviders())
	}

	if settings.APIKey == "" {
		settings.APIKey = os.Getenv(spec.EnvVar)
	}
	if settings.APIKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q: %w", spec.EnvVar, settings.Provider, ErrEmptyAPIKey)
	}
	if settings.Model == "" {
		settings.Model = spec.DefaultModel
	}

	return NewClient(settings.Provider, ClientConfig{
		APIKey:      settings.APIKey,
		Model:       settings.Model,
		BaseURL:     settings.BaseURL,
		Temperature: settings.Temperature,
		Middleware:  StandardMiddleware(settings, collector),
	})
}

// StandardMiddleware returns the chain Build installs.
func StandardMiddleware(settings Settings, collector ports.MetricsCollector) []Middleware {
	chain := []Middleware{
		TracingMiddleware(settings.Provider),
		MetricsMiddleware(settings.Provider, collector),
		TimeoutMiddleware(settings.Timeout),
		RetryMiddleware(settings.MaxRetries, settings.RetryBaseDelay, settings.RetryMaxDelay),
	}
	if settings.BreakerFailures > 0 {
		// A collector that also observes breakers gets its state changes.
		breakerMetrics, _ := collector.(CircuitBreakerMetrics)
		chain = append(chain, CircuitBreakerMiddlewareWithMetrics(settings.BreakerFailures, settings.BreakerCooldown, breakerMetrics))
	}
	chain = append(chain, RateLimitMiddleware(rate.Limit(settings.RateLimit), settings.Burst))
	return chain
}
