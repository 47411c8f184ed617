package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/iam-archie/school-chatbot/infrastructure/llm"
	"github.com/iam-archie/school-chatbot/internal/ports"
)

// Default settings for OpenAIEmbedder.
const (
	DefaultEmbeddingModel     = string(openai.SmallEmbedding3)
	DefaultEmbeddingBatchSize = 64
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
}

var _ ports.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder. An empty model selects
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey, model, baseURL string, batchSize int, timeout time.Duration) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, llm.ErrEmptyAPIKey
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}

	clientConfig, err := llm.NewOpenAIClientConfig(apiKey, baseURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     openai.EmbeddingModel(model),
		batchSize: batchSize,
	}, nil
}

// EmbedDocuments embeds texts in batches of the configured size.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return embeddings.BatchedEmbed(ctx, embeddings.EmbedderClientFunc(e.createEmbedding), texts, e.batchSize)
}

// EmbedQuery embeds a single query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.createEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) createEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("received %d embeddings for %d texts: %w", len(resp.Data), len(texts), ports.ErrInvalidResponse)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("embedding index %d out of order: %w", d.Index, ports.ErrInvalidResponse)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, errors.Join(ports.ErrInvalidResponse, fmt.Errorf("empty embedding for text %d", i))
		}
	}
	return vectors, nil
}
