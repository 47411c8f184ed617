package ingest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Options configures a Pipeline.
type Options struct {
	ChunkSize    int `yaml:"chunk_size" validate:"min=1"`
	ChunkOverlap int `yaml:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
	BatchSize    int `yaml:"batch_size" validate:"min=1"`
	Concurrency  int `yaml:"concurrency" validate:"min=1"`
	// DedupeThreshold drops a chunk whose similarity to an earlier chunk of
	// the same page reaches it. Zero disables deduplication.
	DedupeThreshold float64 `yaml:"dedupe_threshold" validate:"min=0,max=1"`
}

// DefaultOptions returns 500/100 chunks embedded 32 at a time by four
// workers, dropping near-identical chunks.
func DefaultOptions() Options {
	return Options{
		ChunkSize:       DefaultChunkSize,
		ChunkOverlap:    DefaultChunkOverlap,
		BatchSize:       32,
		Concurrency:     4,
		DedupeThreshold: 0.95,
	}
}

// Pipeline chunks pages and embeds the chunks.
type Pipeline struct {
	chunker  *Chunker
	embedder ports.Embedder
	opts     Options
	log      logger.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(embedder ports.Embedder, opts Options, log logger.Logger) (*Pipeline, error) {
	chunker, err := NewChunker(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{chunker: chunker, embedder: embedder, opts: opts, log: log}, nil
}

// Chunk splits pages into chunks. It returns domain.ErrEmptyCorpus when no
// page yields any text.
func (p *Pipeline) Chunk(pages []Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	dropped := 0
	for _, page := range pages {
		var kept []string
		for _, text := range p.chunker.Split(page.Text) {
			if p.isNearDuplicate(text, kept) {
				dropped++
				continue
			}
			kept = append(kept, text)
		}
		for i, text := range kept {
			chunks = append(chunks, domain.Chunk{
				ID:         uuid.NewString(),
				Content:    text,
				Source:     page.Source,
				Page:       page.Number,
				ChunkIndex: i,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	p.log.Debug("chunked corpus", "pages", len(pages), "chunks", len(chunks), "near_duplicates", dropped)
	return chunks, nil
}

// Embed embeds chunks in concurrent batches, preserving order.
func (p *Pipeline) Embed(ctx context.Context, chunks []domain.Chunk) ([]ports.VectorRecord, error) {
	records := make([]ports.VectorRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(chunks))
		batch := chunks[start:end]
		offset := start
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Content
			}
			vectors, err := p.embedder.EmbedDocuments(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", offset, offset+len(batch)-1, err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors: %w", offset, offset+len(batch)-1, len(vectors), ports.ErrInvalidResponse)
			}
			for i := range batch {
				records[offset+i] = ports.VectorRecord{Chunk: batch[i], Embedding: vectors[i]}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, ports.NewServiceError("embedder", "EmbedDocuments", err)
	}
	return records, nil
}

// Run chunks and embeds pages.
func (p *Pipeline) Run(ctx context.Context, pages []Page) ([]ports.VectorRecord, error) {
	chunks, err := p.Chunk(pages)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, chunks)
}

func (p *Pipeline) isNearDuplicate(text string, kept []string) bool {
	if p.opts.DedupeThreshold <= 0 {
		return false
	}
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	for _, k := range kept {
		if similarity(normalized, strings.ToLower(strings.Join(strings.Fields(k), " "))) >= p.opts.DedupeThreshold {
			return true
		}
	}
	return false
}

// similarity is 1 minus the normalised Levenshtein distance.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
