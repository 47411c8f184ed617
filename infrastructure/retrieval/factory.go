package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// Embedder providers.
const (
	EmbedderOpenAI  = "openai"
	EmbedderLexical = "lexical"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// EmbedderSettings selects and configures the embedder.
type EmbedderSettings struct {
	Provider  string        `yaml:"provider" validate:"oneof=openai lexical"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"-"`
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	BatchSize int           `yaml:"batch_size" validate:"min=0"`
	Dimension int           `yaml:"dimension" validate:"min=0"`
	CacheSize int           `yaml:"cache_size" validate:"min=0"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreSettings selects and configures the vector store.
type StoreSettings struct {
	Backend   string `yaml:"backend" validate:"oneof=memory redis"`
	RedisURL  string `yaml:"redis_url" validate:"required_if=Backend redis"`
	Prefix    string `yaml:"prefix"`
	Dimension int    `yaml:"dimension" validate:"min=0"`
}

// NewEmbedder builds the configured embedder, wrapped in a query cache
// when CacheSize is positive.
func NewEmbedder(settings EmbedderSettings) (ports.Embedder, error) {
	var (
		embedder ports.Embedder
		err      error
	)
	switch settings.Provider {
	case EmbedderOpenAI, "":
		embedder, err = NewOpenAIEmbedder(settings.APIKey, settings.Model, settings.BaseURL, settings.BatchSize, settings.Timeout)
	case EmbedderLexical:
		embedder = NewLexicalEmbedder(settings.Dimension)
	default:
		return nil, fmt.Errorf("embedder provider %q is not supported", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.CacheSize > 0 {
		return NewCachedEmbedder(embedder, settings.CacheSize)
	}
	return embedder, nil
}

// NewStore builds the configured vector store.
func NewStore(ctx context.Context, settings StoreSettings) (ports.VectorStore, error) {
	switch settings.Backend {
	case StoreMemory, "":
		return NewMemoryStore(settings.Dimension), nil
	case StoreRedis:
		return NewRedisStore(ctx, settings.RedisURL, settings.Prefix, settings.Dimension)
	default:
		return nil, fmt.Errorf("vector store backend %q is not supported", settings.Backend)
	}
}
