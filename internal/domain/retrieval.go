package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RetrievalLevel identifies a rung of the escalation ladder, or one of the
// terminal markers used when no ladder rung produced the answer.
type RetrievalLevel int

const (
	// LevelPrimary searches with the student's question as written.
	LevelPrimary RetrievalLevel = iota
	// LevelSecondary widens the search with fixed textbook keywords.
	LevelSecondary
	// LevelTertiary searches with a model-expanded, refined query.
	LevelTertiary
	// LevelNoResults marks a query whose first search found nothing.
	LevelNoResults
	// LevelFallback marks a query that never reached retrieval.
	LevelFallback
)

// MaxRetrievalAttempts bounds the number of ladder rungs tried per query.
const MaxRetrievalAttempts = 3

// Next returns the following ladder rung. It reports false once the ladder
// is exhausted or when called on a terminal marker.
func (l RetrievalLevel) Next() (RetrievalLevel, bool) {
	switch l {
	case LevelPrimary:
		return LevelSecondary, true
	case LevelSecondary:
		return LevelTertiary, true
	default:
		return l, false
	}
}

// OnLadder reports whether the level is one of the three search strategies.
func (l RetrievalLevel) OnLadder() bool {
	return l == LevelPrimary || l == LevelSecondary || l == LevelTertiary
}

// String returns the canonical upper-case level name.
func (l RetrievalLevel) String() string {
	switch l {
	case LevelPrimary:
		return "PRIMARY"
	case LevelSecondary:
		return "SECONDARY"
	case LevelTertiary:
		return "TERTIARY"
	case LevelNoResults:
		return "NO_RESULTS"
	case LevelFallback:
		return "FALLBACK"
	default:
		return fmt.Sprintf("RetrievalLevel(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l RetrievalLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *RetrievalLevel) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "PRIMARY":
		*l = LevelPrimary
	case "SECONDARY":
		*l = LevelSecondary
	case "TERTIARY":
		*l = LevelTertiary
	case "NO_RESULTS":
		*l = LevelNoResults
	case "FALLBACK":
		*l = LevelFallback
	default:
		return fmt.Errorf("%w: unknown retrieval level %q", ErrInvalidConfiguration, string(text))
	}
	return nil
}

// Chunk is an immutable unit of retrievable textbook text.
type Chunk struct {
	// ID uniquely identifies the chunk inside the loaded corpus.
	ID string `json:"id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Source names the document the chunk was cut from.
	Source string `json:"source"`

	// Page is the 1-based page (or section) number. Zero means unknown.
	Page int `json:"page"`

	// ChunkIndex is the position of the chunk within its page.
	ChunkIndex int `json:"chunk_index"`
}

// PageLabel renders the citation label shown to students.
func (c Chunk) PageLabel() string {
	if c.Page <= 0 {
		return "Page ?"
	}
	return "Page " + strconv.Itoa(c.Page)
}

// RetrievalAttempt is the outcome of searching at one ladder rung.
type RetrievalAttempt struct {
	Level   RetrievalLevel `json:"level"`
	Query   string         `json:"query"`
	Chunks  []Chunk        `json:"chunks"`
	Context string         `json:"-"`
}

// Empty reports whether the attempt found no documents.
func (a RetrievalAttempt) Empty() bool { return len(a.Chunks) == 0 }

// Sources returns the deduplicated page labels of the attempt's chunks in
// first-seen order.
func (a RetrievalAttempt) Sources() []string {
	seen := make(map[string]struct{}, len(a.Chunks))
	sources := make([]string, 0, len(a.Chunks))
	for _, c := range a.Chunks {
		label := c.PageLabel()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		sources = append(sources, label)
	}
	return sources
}

// JoinContext concatenates chunk contents with blank-line separators,
// skipping chunks whose content is empty.
func JoinContext(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}
