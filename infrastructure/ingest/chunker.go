// Package ingest turns textbook PDFs and plain text into embedded chunks
// ready for the retrieval index.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Default splitter settings, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

var chunkSeparators = []string{"\n\n", "\n", ".", " ", ""}

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Chunker splits page text with a recursive character splitter.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// NewChunker validates size and overlap.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be greater than zero")
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}, nil
}

// Split returns the non-empty chunks of text. If the splitter fails the
// whole text becomes one chunk.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(newlinePattern.ReplaceAllString(text, "\n"))
	if text == "" {
		return nil
	}

	segments, err := c.splitter.SplitText(text)
	if err != nil {
		return []string{text}
	}

	chunks := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}
