package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

type countingEmbedder struct {
	ports.Embedder
	mu      sync.Mutex
	queries int
	err     error
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.queries++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.Embedder.EmbedQuery(ctx, text)
}

func textbookRecords(t *testing.T, embedder ports.Embedder) []ports.VectorRecord {
	t.Helper()
	chunks := []domain.Chunk{
		{ID: "p1", Content: "Once there was a tree who loved a little boy. Every day the boy came to play.", Page: 1},
		{ID: "p2", Content: "Shade means a cool, dark area under a tree where the sun cannot reach.", Page: 2},
		{ID: "p3", Content: "Generous means willing to give and share with others.", Page: 2},
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)

	records := make([]ports.VectorRecord, len(chunks))
	for i := range chunks {
		records[i] = ports.VectorRecord{Chunk: chunks[i], Embedding: vectors[i]}
	}
	return records
}

// stallingStore blocks its first Search until release is closed.
type stallingStore struct {
	ports.VectorStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStallingStore(next ports.VectorStore) *stallingStore {
	return &stallingStore{
		VectorStore: next,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *stallingStore) Search(ctx context.Context, query []float32, topK int) ([]ports.VectorMatch, error) {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.VectorStore.Search(ctx, query, topK)
}

// TestIndex_Search finds the chunk sharing the question's words.
func TestIndex_Search(t *testing.T) {
	embedder := NewLexicalEmbedder(0)
	index := NewIndex(embedder, NewMemoryStore(0), nil)
	ctx := context.Background()
	require.NoError(t, index.Replace(ctx, textbookRecords(t, embedder)))

	chunks, err := index.Search(ctx, "What does generous mean?", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "p3", chunks[0].ID)

	chunks, err = index.Search(ctx, "Why was the shade under the tree cool?", 2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "p2", chunks[0].ID)
}

// TestIndex_EmptySkipsEmbedding avoids an embedding call on an empty corpus.
func TestIndex_EmptySkipsEmbedding(t *testing.T) {
	embedder := &countingEmbedder{Embedder: NewLexicalEmbedder(8)}
	index := NewIndex(embedder, NewMemoryStore(8), nil)

	chunks, err := index.Search(context.Background(), "anything", 4)

	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Zero(t, embedder.queries)
}

// TestIndex_Failures wraps collaborator errors as service errors.
func TestIndex_Failures(t *testing.T) {
	ctx := context.Background()
	lexical := NewLexicalEmbedder(8)

	embedder := &countingEmbedder{Embedder: lexical, err: errors.New("quota exceeded")}
	index := NewIndex(embedder, NewMemoryStore(8), nil)
	require.NoError(t, index.Replace(ctx, textbookRecords(t, lexical)))

	_, err := index.Search(ctx, "tree", 2)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)

	store, mr := newTestRedisStore(t, 0)
	mr.Close()
	_, err = NewIndex(lexical, store, nil).Search(ctx, "tree", 2)
	assert.ErrorIs(t, err, ports.ErrServiceUnavailable)
}

// TestIndex_Replace swaps the corpus and rejects an empty one.
func TestIndex_Replace(t *testing.T) {
	embedder := NewLexicalEmbedder(0)
	index := NewIndex(embedder, NewMemoryStore(0), nil)
	ctx := context.Background()

	assert.ErrorIs(t, index.Replace(ctx, nil), domain.ErrEmptyCorpus)

	require.NoError(t, index.Replace(ctx, textbookRecords(t, embedder)))
	second := textbookRecords(t, embedder)[:1]
	require.NoError(t, index.Replace(ctx, second))

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestIndex_ConcurrentSearchAndReplace exercises the swap lock under -race.
func TestIndex_ConcurrentSearchAndReplace(t *testing.T) {
	embedder := NewLexicalEmbedder(0)
	index := NewIndex(embedder, NewMemoryStore(0), nil)
	ctx := context.Background()
	records := textbookRecords(t, embedder)
	require.NoError(t, index.Replace(ctx, records))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := index.Search(ctx, fmt.Sprintf("tree %d", i), 3)
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, index.Replace(ctx, records))
		}()
	}
	wg.Wait()
}

// TestIndex_SlowSearchDoesNotBlock keeps other queries and reloads moving
// while one store search is stuck on the backend.
func TestIndex_SlowSearchDoesNotBlock(t *testing.T) {
	embedder := NewLexicalEmbedder(0)
	store := newStallingStore(NewMemoryStore(0))
	index := NewIndex(embedder, store, nil)
	ctx := context.Background()
	records := textbookRecords(t, embedder)
	require.NoError(t, index.Replace(ctx, records))

	stuck := make(chan error, 1)
	go func() {
		_, err := index.Search(ctx, "tree", 2)
		stuck <- err
	}()
	<-store.entered
	defer close(store.release)

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, index.Replace(ctx, records))
		chunks, err := index.Search(ctx, "What does generous mean?", 1)
		assert.NoError(t, err)
		assert.Len(t, chunks, 1)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reload and second query waited on the stalled search")
	}

	select {
	case err := <-stuck:
		t.Fatalf("stalled search returned early: %v", err)
	default:
	}
}
