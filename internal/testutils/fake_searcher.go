package testutils

import (
	"context"
	"strings"
	"sync"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// SearchCall records one Search invocation.
type SearchCall struct {
	Query string
	K     int
}

// FakeSearcher is a scripted ports.SimilaritySearcher. Rules are matched
// against the query by substring, most recently added first; unmatched
// queries return Default.
type FakeSearcher struct {
	mu      sync.Mutex
	rules   []searchRule
	Default []domain.Chunk
	Err     error
	calls   []SearchCall
}

type searchRule struct {
	contains string
	chunks   []domain.Chunk
}

var _ ports.SimilaritySearcher = (*FakeSearcher)(nil)

// NewFakeSearcher returns a searcher that answers every query with chunks.
func NewFakeSearcher(chunks ...domain.Chunk) *FakeSearcher {
	return &FakeSearcher{Default: chunks}
}

// On returns chunks for queries containing substr.
func (s *FakeSearcher) On(substr string, chunks ...domain.Chunk) *FakeSearcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]searchRule{{contains: substr, chunks: chunks}}, s.rules...)
	return s
}

// Search implements ports.SimilaritySearcher, truncating results to k.
func (s *FakeSearcher) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SearchCall{Query: query, K: k})
	if s.Err != nil {
		return nil, s.Err
	}

	chunks := s.Default
	for _, r := range s.rules {
		if strings.Contains(query, r.contains) {
			chunks = r.chunks
			break
		}
	}
	if k < len(chunks) {
		chunks = chunks[:k]
	}
	return append([]domain.Chunk(nil), chunks...), nil
}

// Calls returns a copy of the recorded searches.
func (s *FakeSearcher) Calls() []SearchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SearchCall(nil), s.calls...)
}

// CallCount returns the number of searches made.
func (s *FakeSearcher) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Chunk builds a chunk for page with the given content.
func Chunk(id string, page int, content string) domain.Chunk {
	return domain.Chunk{ID: id, Content: content, Source: "English Textbook", Page: page}
}

// GivingTreeChunks returns three chunks of the sample story spread over
// two pages.
func GivingTreeChunks() []domain.Chunk {
	return []domain.Chunk{
		Chunk("c1", 1, "A young boy loved a tree very much. The tree gave him shade, apples and branches."),
		Chunk("c2", 1, "The story teaches us about unconditional love, generosity, and sacrifice."),
		Chunk("c3", 2, "Shade: A dark area created when something blocks the sunlight."),
	}
}
