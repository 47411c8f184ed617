package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// MemoryStore is an in-process VectorStore with exact cosine search.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]ports.VectorRecord
	dimension int
}

var _ ports.VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. A zero dimension accepts any
// vector length, fixed by the first upsert.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		records:   make(map[string]ports.VectorRecord),
		dimension: dimension,
	}
}

// Upsert adds or replaces records by chunk ID.
func (s *MemoryStore) Upsert(_ context.Context, records []ports.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if s.dimension == 0 {
			s.dimension = len(rec.Embedding)
		}
		if len(rec.Embedding) != s.dimension {
			return ports.NewStoreError("memory", "Upsert",
				fmt.Errorf("chunk %q: %w (got %d want %d)", rec.Chunk.ID, ports.ErrDimensionMismatch, len(rec.Embedding), s.dimension))
		}
	}
	for _, rec := range records {
		s.records[rec.Chunk.ID] = ports.VectorRecord{
			Chunk:     rec.Chunk,
			Embedding: cloneVector(rec.Embedding),
		}
	}
	return nil
}

// Search ranks every record against query.
func (s *MemoryStore) Search(_ context.Context, query []float32, topK int) ([]ports.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, ports.NewStoreError("memory", "Search",
			fmt.Errorf("%w (got %d want %d)", ports.ErrDimensionMismatch, len(query), s.dimension))
	}

	matches := make([]ports.VectorMatch, 0, len(s.records))
	for _, rec := range s.records {
		matches = append(matches, ports.VectorMatch{
			Chunk: rec.Chunk,
			Score: cosineSimilarity(rec.Embedding, query),
		})
	}
	return rankMatches(matches, topK), nil
}

// Reset removes every record.
func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]ports.VectorRecord)
	return nil
}

// Count returns the number of records.
func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
