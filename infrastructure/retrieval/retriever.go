// Package retrieval implements the three-rung search ladder over a
// similarity index, together with the vector stores and embedders that
// back the index.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/internal/ports"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// DefaultKeywordSuffix widens SECONDARY searches with words that appear in
// every textbook chapter.
const DefaultKeywordSuffix = "lesson chapter story poem meaning"

// QueryExpander rewrites a question into a longer search query. It is used
// by the TERTIARY rung only.
type QueryExpander interface {
	Expand(ctx context.Context, query string) (string, error)
}

// Config holds the number of chunks requested per rung.
type Config struct {
	PrimaryK      int    `yaml:"primary_k" validate:"min=1,max=50"`
	SecondaryK    int    `yaml:"secondary_k" validate:"min=1,max=50"`
	TertiaryK     int    `yaml:"tertiary_k" validate:"min=1,max=50"`
	KeywordSuffix string `yaml:"keyword_suffix"`
}

// DefaultConfig returns k=4/6/8 and the standard keyword suffix.
func DefaultConfig() Config {
	return Config{
		PrimaryK:      4,
		SecondaryK:    6,
		TertiaryK:     8,
		KeywordSuffix: DefaultKeywordSuffix,
	}
}

// K returns the result count for a ladder rung.
func (c Config) K(level domain.RetrievalLevel) int {
	switch level {
	case domain.LevelPrimary:
		return c.PrimaryK
	case domain.LevelSecondary:
		return c.SecondaryK
	case domain.LevelTertiary:
		return c.TertiaryK
	default:
		return 0
	}
}

// Retriever runs one search per call at the requested rung.
type Retriever struct {
	searcher ports.SimilaritySearcher
	expander QueryExpander
	cfg      Config
	log      logger.Logger
}

// NewRetriever creates a Retriever. Zero k values in cfg are replaced by
// the defaults.
func NewRetriever(searcher ports.SimilaritySearcher, expander QueryExpander, cfg Config, log logger.Logger) *Retriever {
	def := DefaultConfig()
	if cfg.PrimaryK <= 0 {
		cfg.PrimaryK = def.PrimaryK
	}
	if cfg.SecondaryK <= 0 {
		cfg.SecondaryK = def.SecondaryK
	}
	if cfg.TertiaryK <= 0 {
		cfg.TertiaryK = def.TertiaryK
	}
	if strings.TrimSpace(cfg.KeywordSuffix) == "" {
		cfg.KeywordSuffix = def.KeywordSuffix
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Retriever{searcher: searcher, expander: expander, cfg: cfg, log: log}
}

// Retrieve searches the index for query at level. The returned attempt
// keeps query as given; the rung's search variant is only sent to the
// index. No matches is an empty attempt, not an error. Index and expansion
// failures are returned wrapped in a ports.ServiceError and never reported
// as an empty attempt, so the caller can answer with an unavailable
// response instead of treating an outage as a question the textbook does
// not cover.
func (r *Retriever) Retrieve(ctx context.Context, query string, level domain.RetrievalLevel) (domain.RetrievalAttempt, error) {
	attempt := domain.RetrievalAttempt{Level: level, Query: query}

	searchQuery, err := r.searchQuery(ctx, query, level)
	if err != nil {
		return attempt, err
	}

	k := r.cfg.K(level)
	chunks, err := r.searcher.Search(ctx, searchQuery, k)
	if err != nil {
		return attempt, ports.NewServiceError("index", "Search", err)
	}

	attempt.Chunks = chunks
	attempt.Context = domain.JoinContext(chunks)

	r.log.Debug("retrieved chunks",
		"retrieval_level", level.String(),
		"k", k,
		"found", len(chunks),
	)
	return attempt, nil
}

func (r *Retriever) searchQuery(ctx context.Context, query string, level domain.RetrievalLevel) (string, error) {
	if !level.OnLadder() {
		return "", fmt.Errorf("retrieval level %s is not a search rung", level)
	}
	switch level {
	case domain.LevelPrimary:
		return query, nil
	case domain.LevelSecondary:
		return query + " " + r.cfg.KeywordSuffix, nil
	case domain.LevelTertiary:
		if r.expander == nil {
			return query, nil
		}
		expanded, err := r.expander.Expand(ctx, query)
		if err != nil {
			return "", ports.NewServiceError("llm", "ExpandQuery", err)
		}
		r.log.Debug("expanded query", "query", query, "expanded", expanded)
		return expanded, nil
	default:
		return query, nil
	}
}
