package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iam-archie/school-chatbot/infrastructure/llm"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// gatherFamily returns the metric family called name from reg.
func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

// findMetric returns the metric of family whose labels include want.
func findMetric(t *testing.T, family *dto.MetricFamily, want map[string]string) *dto.Metric {
	t.Helper()
	for _, m := range family.GetMetric() {
		matched := 0
		for _, lp := range m.GetLabel() {
			if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(want) {
			return m
		}
	}
	t.Fatalf("no metric in %s with labels %v", family.GetName(), want)
	return nil
}

// TestPrometheusMetrics_Queries counts questions by status, level and quality.
func TestPrometheusMetrics_Queries(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	labels := map[string]string{"status": "answered", "level": "SECONDARY", "quality": "GOOD"}
	pm.RecordCounter(ports.MetricQueries, 1, labels)
	pm.RecordCounter(ports.MetricQueries, 1, labels)
	pm.RecordCounter(ports.MetricQueries, 1, map[string]string{"status": "blocked"})
	pm.RecordCounter(ports.MetricEscalations, 1, map[string]string{"level": "TERTIARY"})

	family := gatherFamily(t, reg, "schoolbot_queries_total")
	assert.Equal(t, 2.0, findMetric(t, family, labels).GetCounter().GetValue())
	blocked := findMetric(t, family, map[string]string{"status": "blocked", "level": "unknown", "quality": "unknown"})
	assert.Equal(t, 1.0, blocked.GetCounter().GetValue())

	escalations := gatherFamily(t, reg, "schoolbot_escalations_total")
	assert.Equal(t, 1.0, findMetric(t, escalations, map[string]string{"level": "TERTIARY"}).GetCounter().GetValue())
}

// TestPrometheusMetrics_StageLatency observes stage durations in seconds.
func TestPrometheusMetrics_StageLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordLatency("retrieve", 250*time.Millisecond, map[string]string{"level": "PRIMARY"})
	pm.RecordLatency("check_input", time.Millisecond, nil)

	family := gatherFamily(t, reg, "schoolbot_stage_duration_seconds")
	retrieve := findMetric(t, family, map[string]string{"stage": "retrieve", "level": "PRIMARY"})
	assert.Equal(t, uint64(1), retrieve.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.25, retrieve.GetHistogram().GetSampleSum(), 1e-9)
	findMetric(t, family, map[string]string{"stage": "check_input", "level": "none"})
}

// TestPrometheusMetrics_LLM routes the llm middleware metrics.
func TestPrometheusMetrics_LLM(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	labels := map[string]string{"provider": "openai", "model": "gpt-4o-mini", "status": "success"}
	pm.RecordHistogram(llm.MetricLatency, 0.5, labels)
	pm.RecordCounter(llm.MetricRequests, 1, labels)
	pm.RecordCounter(llm.MetricTokens, 120, map[string]string{"provider": "openai", "model": "gpt-4o-mini", "token_type": "input"})
	pm.RecordHistogram("answer_length", 42, nil)

	latency := gatherFamily(t, reg, "schoolbot_llm_latency_seconds")
	assert.Equal(t, uint64(1), findMetric(t, latency, labels).GetHistogram().GetSampleCount())

	requests := gatherFamily(t, reg, "schoolbot_llm_requests_total")
	assert.Equal(t, 1.0, findMetric(t, requests, labels).GetCounter().GetValue())

	tokens := gatherFamily(t, reg, "schoolbot_llm_tokens_total")
	assert.Equal(t, 120.0, findMetric(t, tokens, map[string]string{"token_type": "input"}).GetCounter().GetValue())

	misc := gatherFamily(t, reg, "schoolbot_observations")
	assert.Equal(t, 42.0, findMetric(t, misc, map[string]string{"metric": "answer_length"}).GetHistogram().GetSampleSum())
}

// TestPrometheusMetrics_GaugesAndOperations covers the generic vectors.
func TestPrometheusMetrics_GaugesAndOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordGauge(ports.MetricCorpusChunks, 17, nil)
	pm.RecordGauge(ports.MetricCorpusChunks, 12, nil)
	pm.RecordCounter("corpus_loads", 1, nil)

	gauges := gatherFamily(t, reg, "schoolbot_state")
	assert.Equal(t, 12.0, findMetric(t, gauges, map[string]string{"metric": ports.MetricCorpusChunks}).GetGauge().GetValue())

	ops := gatherFamily(t, reg, "schoolbot_operations_total")
	assert.Equal(t, 1.0, findMetric(t, ops, map[string]string{"operation": "corpus_loads"}).GetCounter().GetValue())
}

// TestPrometheusMetrics_CircuitBreaker records breaker events and state.
func TestPrometheusMetrics_CircuitBreaker(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordFailure()
	pm.RecordFailure()
	pm.RecordTrip()
	pm.RecordSuccess()
	pm.RecordState(llm.StateOpen)

	events := gatherFamily(t, reg, "schoolbot_llm_circuit_breaker_events_total")
	assert.Equal(t, 2.0, findMetric(t, events, map[string]string{"event": "failure"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, findMetric(t, events, map[string]string{"event": "rejected"}).GetCounter().GetValue())

	state := gatherFamily(t, reg, "schoolbot_llm_circuit_breaker_state")
	assert.Equal(t, 1.0, state.GetMetric()[0].GetGauge().GetValue())
}

// TestNewPrometheusMetrics_DuplicateRegistration panics on a second
// registration against the same registry.
func TestNewPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)
	assert.Panics(t, func() { NewPrometheusMetrics(reg) })
}

type staticSnapshot map[string]int64

func (s staticSnapshot) Snapshot() map[string]int64 { return s }

// TestSafetyCollector exports every snapshot key at scrape time.
func TestSafetyCollector(t *testing.T) {
	source := staticSnapshot{"blocked_sexual": 2, "total_input_checks": 9, "pii_detected": 1}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewSafetyCollector(source)))

	family := gatherFamily(t, reg, "schoolbot_safety_events_total")
	require.Len(t, family.GetMetric(), 3)
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())
	assert.Equal(t, 9.0, findMetric(t, family, map[string]string{"counter": "total_input_checks"}).GetCounter().GetValue())

	source["blocked_sexual"] = 5
	family = gatherFamily(t, reg, "schoolbot_safety_events_total")
	assert.Equal(t, 5.0, findMetric(t, family, map[string]string{"counter": "blocked_sexual"}).GetCounter().GetValue())
}
