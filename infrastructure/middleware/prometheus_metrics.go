// Package middleware provides cross-cutting observability for the question
// pipeline: a Prometheus-backed ports.MetricsCollector and a collector that
// exports the safety counters at scrape time.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iam-archie/school-chatbot/infrastructure/llm"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// Namespace prefixes every exported metric.
const Namespace = "schoolbot"

// PrometheusMetrics implements ports.MetricsCollector using Prometheus. It
// also observes the LLM circuit breaker.
type PrometheusMetrics struct {
	queries        *prometheus.CounterVec
	escalations    *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	llmLatency     *prometheus.HistogramVec
	llmRequests    *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
	breakerEvents  *prometheus.CounterVec
	breakerState   prometheus.Gauge
	operations     *prometheus.CounterVec
	gauges         *prometheus.GaugeVec
	histogramsMisc *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the pipeline metrics with reg. A nil reg
// uses the global default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      ports.MetricQueries,
				Help:      "Student questions handled, by terminal status, retrieval level and context quality.",
			},
			[]string{"status", "level", "quality"},
		),
		escalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      ports.MetricEscalations,
				Help:      "Escalations up the retrieval ladder, by target level.",
			},
			[]string{"level"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "level"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      llm.MetricLatency,
				Help:      "Latency of generation service calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      llm.MetricRequests,
				Help:      "Generation service calls, by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      llm.MetricTokens,
				Help:      "Tokens consumed by generation service calls.",
			},
			[]string{"provider", "model", "token_type"},
		),
		breakerEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "llm_circuit_breaker_events_total",
				Help:      "Circuit breaker outcomes: success, failure or rejected.",
			},
			[]string{"event"},
		),
		breakerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "llm_circuit_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
			},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Other counted operations.",
			},
			[]string{"operation"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "state",
				Help:      "Current values such as the corpus size.",
			},
			[]string{"metric"},
		),
		histogramsMisc: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "observations",
				Help:      "Other observed values.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency observes the duration of a pipeline stage.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.stageLatency.WithLabelValues(operation, labelOr(labels, "level", "none")).Observe(duration.Seconds())
}

// RecordCounter increments the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricQueries:
		pm.queries.WithLabelValues(
			labelOr(labels, "status", "unknown"),
			labelOr(labels, "level", "unknown"),
			labelOr(labels, "quality", "unknown"),
		).Add(value)
	case ports.MetricEscalations:
		pm.escalations.WithLabelValues(labelOr(labels, "level", "unknown")).Add(value)
	case llm.MetricRequests:
		pm.llmRequests.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Add(value)
	case llm.MetricTokens:
		pm.llmTokens.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "token_type", "unknown"),
		).Add(value)
	default:
		pm.operations.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value for metric. LLM latency has its own
// histogram; everything else shares one vector keyed by name.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == llm.MetricLatency {
		pm.llmLatency.WithLabelValues(
			labelOr(labels, "provider", "unknown"),
			labelOr(labels, "model", "unknown"),
			labelOr(labels, "status", "unknown"),
		).Observe(value)
		return
	}
	pm.histogramsMisc.WithLabelValues(metric).Observe(value)
}

// RecordState implements llm.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordState(state llm.CircuitBreakerState) {
	pm.breakerState.Set(float64(state))
}

// RecordTrip implements llm.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordTrip() { pm.breakerEvents.WithLabelValues("rejected").Inc() }

// RecordSuccess implements llm.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordSuccess() { pm.breakerEvents.WithLabelValues("success").Inc() }

// RecordFailure implements llm.CircuitBreakerMetrics.
func (pm *PrometheusMetrics) RecordFailure() { pm.breakerEvents.WithLabelValues("failure").Inc() }

func labelOr(labels map[string]string, key, fallback string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Compile-time verification of the observer interfaces.
var (
	_ ports.MetricsCollector    = (*PrometheusMetrics)(nil)
	_ llm.CircuitBreakerMetrics = (*PrometheusMetrics)(nil)
)
