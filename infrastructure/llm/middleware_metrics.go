package llm

import (
	"context"
	"errors"
	"time"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// Metric names recorded by MetricsMiddleware.
const (
	MetricLatency  = "llm_latency_seconds"
	MetricRequests = "llm_requests_total"
	MetricTokens   = "llm_tokens_total"
)

// metricsLLM records latency, request and token metrics.
type metricsLLM struct {
	next      CoreLLM
	provider  string
	collector ports.MetricsCollector
}

// MetricsMiddleware records every request into collector, labelled with
// provider and model.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		if collector == nil {
			return next
		}
		return &metricsLLM{
			next:      next,
			provider:  provider,
			collector: collector,
		}
	}
}

// DoRequest forwards the request and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(err),
	}

	m.collector.RecordHistogram(MetricLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricRequests, 1, labels)

	if err == nil {
		m.collector.RecordCounter(MetricTokens, float64(tokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter(MetricTokens, float64(tokensOut), withLabel(labels, "token_type", "output"))
	}

	return response, tokensIn, tokensOut, err
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var pe *ProviderError
		if errors.As(err, &pe) && pe.Type == ErrorTypeTimeout {
			return "timeout"
		}
		return "error"
	}
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsLLM) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }
