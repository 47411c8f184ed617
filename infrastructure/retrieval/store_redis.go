package retrieval

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "schoolbot:corpus"

const (
	redisFieldContent    = "content"
	redisFieldSource     = "source"
	redisFieldPage       = "page"
	redisFieldChunkIndex = "chunk_index"
	redisFieldEmbedding  = "embedding"
)

// RedisStore keeps each chunk in a hash and the chunk IDs in a set.
// Similarity is computed client-side, which suits textbook-sized corpora
// and works on any Redis server.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	dimension int
}

var _ ports.VectorStore = (*RedisStore)(nil)

// NewRedisStore connects to url and verifies the connection.
func NewRedisStore(ctx context.Context, url, prefix string, dimension int) (*RedisStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("redis store: invalid url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis store: ping failed: %w", err)
	}
	return NewRedisStoreFromClient(client, prefix, dimension), nil
}

// NewRedisStoreFromClient wraps an existing client. A zero dimension
// disables the length check.
func NewRedisStoreFromClient(client *redis.Client, prefix string, dimension int) *RedisStore {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, dimension: dimension}
}

func (s *RedisStore) idsKey() string { return s.prefix + ":ids" }

func (s *RedisStore) chunkKey(id string) string { return s.prefix + ":chunk:" + id }

// Upsert writes records in one transaction.
func (s *RedisStore) Upsert(ctx context.Context, records []ports.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if s.dimension > 0 && len(rec.Embedding) != s.dimension {
			return ports.NewStoreError("redis", "Upsert",
				fmt.Errorf("chunk %q: %w (got %d want %d)", rec.Chunk.ID, ports.ErrDimensionMismatch, len(rec.Embedding), s.dimension))
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.HSet(ctx, s.chunkKey(rec.Chunk.ID), map[string]any{
				redisFieldContent:    rec.Chunk.Content,
				redisFieldSource:     rec.Chunk.Source,
				redisFieldPage:       rec.Chunk.Page,
				redisFieldChunkIndex: rec.Chunk.ChunkIndex,
				redisFieldEmbedding:  encodeVector(rec.Embedding),
			})
			pipe.SAdd(ctx, s.idsKey(), rec.Chunk.ID)
		}
		return nil
	})
	if err != nil {
		return ports.NewStoreError("redis", "Upsert", err)
	}
	return nil
}

// Search loads every chunk and ranks it against query.
func (s *RedisStore) Search(ctx context.Context, query []float32, topK int) ([]ports.VectorMatch, error) {
	if topK <= 0 {
		return nil, nil
	}
	if s.dimension > 0 && len(query) != s.dimension {
		return nil, ports.NewStoreError("redis", "Search",
			fmt.Errorf("%w (got %d want %d)", ports.ErrDimensionMismatch, len(query), s.dimension))
	}

	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, ports.NewStoreError("redis", "Search", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.chunkKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, ports.NewStoreError("redis", "Search", err)
	}

	matches := make([]ports.VectorMatch, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		chunk, embedding, err := decodeRecord(ids[i], fields)
		if err != nil {
			return nil, ports.NewStoreError("redis", "Search", err)
		}
		if len(embedding) != len(query) {
			return nil, ports.NewStoreError("redis", "Search",
				fmt.Errorf("chunk %q: %w (got %d want %d)", chunk.ID, ports.ErrDimensionMismatch, len(embedding), len(query)))
		}
		matches = append(matches, ports.VectorMatch{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, query),
		})
	}
	return rankMatches(matches, topK), nil
}

// Reset deletes every chunk hash and the ID set.
func (s *RedisStore) Reset(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return ports.NewStoreError("redis", "Reset", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.chunkKey(id))
	}
	keys = append(keys, s.idsKey())
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return ports.NewStoreError("redis", "Reset", err)
	}
	return nil
}

// Count returns the size of the ID set.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.idsKey()).Result()
	if err != nil {
		return 0, ports.NewStoreError("redis", "Count", err)
	}
	return int(n), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRecord(id string, fields map[string]string) (domain.Chunk, []float32, error) {
	page, err := strconv.Atoi(fields[redisFieldPage])
	if err != nil {
		return domain.Chunk{}, nil, fmt.Errorf("chunk %q: invalid page: %w", id, err)
	}
	index, err := strconv.Atoi(fields[redisFieldChunkIndex])
	if err != nil {
		return domain.Chunk{}, nil, fmt.Errorf("chunk %q: invalid chunk index: %w", id, err)
	}
	embedding, err := decodeVector([]byte(fields[redisFieldEmbedding]))
	if err != nil {
		return domain.Chunk{}, nil, fmt.Errorf("chunk %q: %w", id, err)
	}
	return domain.Chunk{
		ID:         id,
		Content:    fields[redisFieldContent],
		Source:     fields[redisFieldSource],
		Page:       page,
		ChunkIndex: index,
	}, embedding, nil
}

// encodeVector stores float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
