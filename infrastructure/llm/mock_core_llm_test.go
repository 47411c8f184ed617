package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// mockCoreLLM is a configurable CoreLLM for middleware tests.
type mockCoreLLM struct {
	mu sync.Mutex

	response      string
	tokensIn      int
	tokensOut     int
	err           error
	model         string
	responseDelay time.Duration

	// failUntilAttempt fails the first N calls, then succeeds.
	failUntilAttempt int

	callCount int
	lastOpts  map[string]any
}

func newMockCoreLLM() *mockCoreLLM {
	return &mockCoreLLM{
		response:  "The tree gave the boy shade.",
		tokensIn:  10,
		tokensOut: 20,
		model:     "test-model",
	}
}

var errSimulated = errors.New("simulated failure")

func (m *mockCoreLLM) DoRequest(ctx context.Context, _ string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.callCount++
	call := m.callCount
	m.lastOpts = opts
	delay := m.responseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	if m.failUntilAttempt > 0 && call <= m.failUntilAttempt {
		if m.err != nil {
			return "", 0, 0, m.err
		}
		return "", 0, 0, errSimulated
	}
	if m.failUntilAttempt == 0 && m.err != nil {
		return "", 0, 0, m.err
	}
	return m.response, m.tokensIn, m.tokensOut, nil
}

func (m *mockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *mockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

func (m *mockCoreLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockCoreLLM) options() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

// recordingCollector implements ports.MetricsCollector in memory.
type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	labels     []map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (r *recordingCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	r.RecordHistogram(op, d.Seconds(), labels)
}

func (r *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := metric
	if tt, ok := labels["token_type"]; ok {
		key += ":" + tt
	}
	r.counters[key] += value
	r.labels = append(r.labels, labels)
}

func (r *recordingCollector) RecordGauge(metric string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[metric] = value
}

func (r *recordingCollector) RecordHistogram(metric string, value float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[metric] = append(r.histograms[metric], value)
}
