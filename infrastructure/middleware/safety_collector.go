package middleware

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotSource exposes monotonically growing counters by name.
type SnapshotSource interface {
	Snapshot() map[string]int64
}

// SafetyCollector exports safety counters at scrape time, so the counters
// stay the single source of truth.
type SafetyCollector struct {
	source SnapshotSource
	desc   *prometheus.Desc
}

var _ prometheus.Collector = (*SafetyCollector)(nil)

// NewSafetyCollector creates a collector over source.
func NewSafetyCollector(source SnapshotSource) *SafetyCollector {
	return &SafetyCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "safety", "events_total"),
			"Safety screen counters: checks run, questions blocked per category, PII redactions and replaced answers.",
			[]string{"counter"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SafetyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SafetyCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(snapshot[k]), k)
	}
}
