// Package llm is the generation service of the textbook assistant. It puts
// OpenAI, Anthropic and Google models behind ports.LLMClient and layers
// timeouts, retries, circuit breaking, rate limiting, metrics and tracing
// around every call as middleware.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey:      os.Getenv("OPENAI_API_KEY"),
//	    Model:       "gpt-4o-mini",
//	    Temperature: 0.3,
//	    Middleware: []llm.Middleware{
//	        llm.TimeoutMiddleware(30 * time.Second),
//	        llm.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
//	    },
//	})
//	answer, err := client.Complete(ctx, prompt, nil)
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// CoreLLM is the minimal contract a provider implements. Middleware wraps
// one CoreLLM in another.
type CoreLLM interface {
	// DoRequest sends one prompt and returns the reply with input and
	// output token counts.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model to use for subsequent requests.
	SetModel(model string)
}

// TokenEstimator approximates token counts before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds the options for creating a Client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model names the model to call.
	Model string

	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string

	// Timeout bounds the provider's HTTP client. Zero leaves the SDK default.
	Timeout time.Duration

	// Temperature is sent with every request that does not set its own.
	// A negative value leaves the provider default.
	Temperature float64

	// TokenEstimator counts tokens for EstimateTokens. Nil uses
	// SimpleTokenEstimator.
	TokenEstimator TokenEstimator

	// Middleware is applied in order; the first entry is the outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add cross-cutting behaviour.
type Middleware func(CoreLLM) CoreLLM

// Client implements ports.LLMClient on top of a middleware-wrapped provider.
// Every failed completion is returned as a *ports.ServiceError so callers
// can treat it as an outage with errors.Is(err, ports.ErrServiceUnavailable).
type Client struct {
	core        CoreLLM
	estimator   TokenEstimator
	temperature float64
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a client for a registered provider type.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return NewClientFromCore(core, config), nil
}

// NewClientFromCore wraps an existing CoreLLM with the configured
// middleware chain.
func NewClientFromCore(core CoreLLM, config ClientConfig) *Client {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &SimpleTokenEstimator{}
	}

	return &Client{
		core:        core,
		estimator:   estimator,
		temperature: config.Temperature,
	}
}

// Complete sends a prompt and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt and also returns token usage.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, c.withDefaults(options))
	if err != nil {
		return "", 0, 0, ports.NewServiceError("llm", "Complete", err)
	}
	return response, tokensIn, tokensOut, nil
}

// withDefaults returns options with the client temperature filled in. The
// caller's map is never modified.
func (c *Client) withDefaults(options map[string]any) map[string]any {
	if c.temperature < 0 {
		return options
	}
	if _, ok := options["temperature"]; ok {
		return options
	}
	merged := make(map[string]any, len(options)+1)
	for k, v := range options {
		merged[k] = v
	}
	merged["temperature"] = c.temperature
	return merged
}

// EstimateTokens returns an approximate token count for text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the model of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SimpleTokenEstimator assumes roughly four characters per token.
type SimpleTokenEstimator struct{}

// EstimateTokens implements TokenEstimator.
func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// providerFactories is filled by each provider's init.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory makes a provider type available to NewClient.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
