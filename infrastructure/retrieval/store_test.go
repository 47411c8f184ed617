package retrieval

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

func newTestRedisStore(t *testing.T, dimension int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, "test:corpus", dimension)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func storeRecords() []ports.VectorRecord {
	return []ports.VectorRecord{
		{Chunk: domain.Chunk{ID: "a", Content: "apple", Source: "book.pdf", Page: 1}, Embedding: []float32{1, 0, 0}},
		{Chunk: domain.Chunk{ID: "b", Content: "banana", Source: "book.pdf", Page: 2, ChunkIndex: 1}, Embedding: []float32{0, 1, 0}},
		{Chunk: domain.Chunk{ID: "c", Content: "cherry", Source: "book.pdf", Page: 3}, Embedding: []float32{0.7, 0.7, 0}},
	}
}

// TestVectorStores runs the same contract against every backend.
func TestVectorStores(t *testing.T) {
	backends := map[string]func(t *testing.T) ports.VectorStore{
		"memory": func(*testing.T) ports.VectorStore { return NewMemoryStore(3) },
		"redis": func(t *testing.T) ports.VectorStore {
			store, _ := newTestRedisStore(t, 3)
			return store
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("empty", func(t *testing.T) {
				store := newStore(t)
				n, err := store.Count(ctx)
				require.NoError(t, err)
				assert.Zero(t, n)

				matches, err := store.Search(ctx, []float32{1, 0, 0}, 4)
				require.NoError(t, err)
				assert.Empty(t, matches)
			})

			t.Run("ranked search", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Upsert(ctx, storeRecords()))

				matches, err := store.Search(ctx, []float32{1, 0.1, 0}, 2)
				require.NoError(t, err)
				require.Len(t, matches, 2)
				assert.Equal(t, "a", matches[0].Chunk.ID)
				assert.Equal(t, "c", matches[1].Chunk.ID)
				assert.Greater(t, matches[0].Score, matches[1].Score)
				assert.Equal(t, "apple", matches[0].Chunk.Content)
				assert.Equal(t, "book.pdf", matches[0].Chunk.Source)
				assert.Equal(t, 1, matches[0].Chunk.Page)
			})

			t.Run("upsert replaces by id", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Upsert(ctx, storeRecords()))
				require.NoError(t, store.Upsert(ctx, []ports.VectorRecord{
					{Chunk: domain.Chunk{ID: "b", Content: "blueberry", Page: 5, ChunkIndex: 2}, Embedding: []float32{0, 0, 1}},
				}))

				n, err := store.Count(ctx)
				require.NoError(t, err)
				assert.Equal(t, 3, n)

				matches, err := store.Search(ctx, []float32{0, 0, 1}, 1)
				require.NoError(t, err)
				require.Len(t, matches, 1)
				assert.Equal(t, "blueberry", matches[0].Chunk.Content)
				assert.Equal(t, 5, matches[0].Chunk.Page)
				assert.Equal(t, 2, matches[0].Chunk.ChunkIndex)
			})

			t.Run("reset", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Upsert(ctx, storeRecords()))
				require.NoError(t, store.Reset(ctx))

				n, err := store.Count(ctx)
				require.NoError(t, err)
				assert.Zero(t, n)
			})

			t.Run("dimension mismatch", func(t *testing.T) {
				store := newStore(t)
				err := store.Upsert(ctx, []ports.VectorRecord{
					{Chunk: domain.Chunk{ID: "x"}, Embedding: []float32{1, 2}},
				})
				assert.ErrorIs(t, err, ports.ErrDimensionMismatch)

				require.NoError(t, store.Upsert(ctx, storeRecords()))
				_, err = store.Search(ctx, []float32{1}, 1)
				assert.ErrorIs(t, err, ports.ErrDimensionMismatch)
			})
		})
	}
}

// TestMemoryStore_InfersDimension fixes the dimension on first upsert.
func TestMemoryStore_InfersDimension(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, storeRecords()))
	err := store.Upsert(ctx, []ports.VectorRecord{{Chunk: domain.Chunk{ID: "z"}, Embedding: []float32{1}}})
	assert.ErrorIs(t, err, ports.ErrDimensionMismatch)
}

// TestRedisStore_Keys verifies the key layout and that Reset leaves
// foreign keys alone.
func TestRedisStore_Keys(t *testing.T) {
	store, mr := newTestRedisStore(t, 3)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, store.Upsert(ctx, storeRecords()))
	assert.True(t, mr.Exists("test:corpus:ids"))
	assert.True(t, mr.Exists("test:corpus:chunk:a"))
	assert.Equal(t, "apple", mr.HGet("test:corpus:chunk:a", "content"))

	require.NoError(t, store.Reset(ctx))
	assert.False(t, mr.Exists("test:corpus:chunk:a"))
	assert.False(t, mr.Exists("test:corpus:ids"))
	assert.True(t, mr.Exists("unrelated"))
}

// TestRedisStore_ConnectionFailure reports a StoreError.
func TestRedisStore_ConnectionFailure(t *testing.T) {
	store, mr := newTestRedisStore(t, 3)
	mr.Close()

	_, err := store.Count(context.Background())
	var storeErr *ports.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "redis", storeErr.Backend)
}

// TestNewRedisStore validates the url and connection.
func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultRedisPrefix, store.prefix)
	require.NoError(t, store.Close())

	_, err = NewRedisStore(context.Background(), "not-a-url", "", 0)
	assert.Error(t, err)
}

// TestVectorCodec round-trips embeddings through the byte encoding.
func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
