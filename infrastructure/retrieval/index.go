package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Index joins an Embedder and a VectorStore into the SimilaritySearcher
// the Retriever consults. Searches take no index lock; the stores guard
// their own state, so a slow store call never holds up other queries or a
// reload.
type Index struct {
	// replaceMu serialises corpus reloads. Searches never take it.
	replaceMu sync.Mutex
	embedder  ports.Embedder
	store     ports.VectorStore
	log       logger.Logger
}

var _ ports.SimilaritySearcher = (*Index)(nil)

// NewIndex creates an Index over store.
func NewIndex(embedder ports.Embedder, store ports.VectorStore, log logger.Logger) *Index {
	if log == nil {
		log = logger.NewNop()
	}
	return &Index{embedder: embedder, store: store, log: log}
}

// Embedder returns the embedder used for queries and documents.
func (i *Index) Embedder() ports.Embedder { return i.embedder }

// Search embeds query and returns the k nearest chunks. An empty store
// returns no chunks without calling the embedder.
func (i *Index) Search(ctx context.Context, query string, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	n, err := i.store.Count(ctx)
	if err != nil {
		return nil, ports.NewServiceError("vector_store", "Count", err)
	}
	if n == 0 {
		i.log.Debug("search on empty index", "query", query)
		return nil, nil
	}

	vector, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, ports.NewServiceError("embedder", "EmbedQuery", err)
	}

	matches, err := i.store.Search(ctx, vector, k)
	if err != nil {
		return nil, ports.NewServiceError("vector_store", "Search", err)
	}

	chunks := make([]domain.Chunk, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, m.Chunk)
	}
	return chunks, nil
}

// Replace swaps the whole corpus for records. A search running while the
// corpus is replaced sees the old corpus, the new one, or an empty index.
func (i *Index) Replace(ctx context.Context, records []ports.VectorRecord) error {
	if len(records) == 0 {
		return domain.ErrEmptyCorpus
	}
	i.replaceMu.Lock()
	defer i.replaceMu.Unlock()

	if err := i.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	if err := i.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	i.log.Info("index loaded", "chunks", len(records))
	return nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count(ctx context.Context) (int, error) {
	return i.store.Count(ctx)
}

// Close releases the store.
func (i *Index) Close() error {
	return i.store.Close()
}
