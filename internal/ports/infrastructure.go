package ports

import (
	"context"
	"time"

	"github.com/iam-archie/school-chatbot/internal/domain"
)

// TextCompleter is the generation service: one prompt in, one text out.
// The pipeline builds every prompt itself; implementations only transport
// it to a model.
type TextCompleter interface {
	// Complete sends a prompt and returns the generated text.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)
}

// LLMClient is a TextCompleter that also exposes model metadata.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	TextCompleter

	// EstimateTokens calculates the approximate token count for a given text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// SimilaritySearcher is the read-only corpus index consulted by the
// retriever. Results are ordered by decreasing similarity.
type SimilaritySearcher interface {
	// Search returns at most k chunks similar to query. An empty or unloaded
	// index yields an empty slice and no error.
	Search(ctx context.Context, query string, k int) ([]domain.Chunk, error)
}

// Embedder converts text into dense vectors.
type Embedder interface {
	// EmbedDocuments embeds a batch of texts, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorRecord is a chunk together with its embedding.
type VectorRecord struct {
	Chunk     domain.Chunk
	Embedding []float32
}

// VectorMatch is a chunk returned by a vector search with its similarity.
type VectorMatch struct {
	Chunk domain.Chunk
	Score float64
}

// VectorStore persists embedded chunks and answers nearest-neighbour
// queries. Implementations must allow concurrent searches.
type VectorStore interface {
	// Upsert adds or replaces records by chunk ID.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Search returns the topK records closest to the query vector.
	Search(ctx context.Context, query []float32, topK int) ([]VectorMatch, error)

	// Reset removes every record.
	Reset(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases any underlying connection.
	Close() error
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

// RecordLatency implements MetricsCollector.
func (NoopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

// RecordCounter implements MetricsCollector.
func (NoopMetrics) RecordCounter(string, float64, map[string]string) {}

// RecordGauge implements MetricsCollector.
func (NoopMetrics) RecordGauge(string, float64, map[string]string) {}

// RecordHistogram implements MetricsCollector.
func (NoopMetrics) RecordHistogram(string, float64, map[string]string) {}

// Metric names recorded by the question pipeline and ingestion.
const (
	// MetricQueries counts answered questions by status, level and tier.
	MetricQueries = "queries_total"
	// MetricEscalations counts moves up the retrieval ladder by target level.
	MetricEscalations = "escalations_total"
	// MetricCorpusChunks is the number of chunks in the loaded corpus.
	MetricCorpusChunks = "corpus_chunks"
)
