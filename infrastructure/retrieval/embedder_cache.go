package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// CachedEmbedder memoises query embeddings. Document embeddings pass
// straight through.
type CachedEmbedder struct {
	next  ports.Embedder
	cache *lru.Cache[string, []float32]
}

var _ ports.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps next with an LRU cache of size entries.
func NewCachedEmbedder(next ports.Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache size must be greater than zero, got %d", size)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// EmbedDocuments delegates to the wrapped embedder.
func (c *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.next.EmbedDocuments(ctx, texts)
}

// EmbedQuery returns a cached vector when one exists.
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return cloneVector(v), nil
	}
	v, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneVector(v))
	return v, nil
}

// Len returns the number of cached queries.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
