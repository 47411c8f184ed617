package retrieval

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/iam-archie/school-chatbot/internal/ports"
)

// DefaultLexicalDimension is the vector size of LexicalEmbedder.
const DefaultLexicalDimension = 512

var lexicalStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "did": {}, "do": {}, "does": {}, "for": {}, "from": {},
	"how": {}, "in": {}, "is": {}, "it": {}, "me": {}, "of": {}, "on": {},
	"or": {}, "tell": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"why": {}, "with": {}, "you": {},
}

// LexicalEmbedder maps text to a normalised bag of hashed word features.
// It needs no network and gives stable vectors, so it serves offline runs
// and tests.
type LexicalEmbedder struct {
	dimension int
}

var _ ports.Embedder = (*LexicalEmbedder)(nil)

// NewLexicalEmbedder creates an embedder with the given vector size.
func NewLexicalEmbedder(dimension int) *LexicalEmbedder {
	if dimension <= 0 {
		dimension = DefaultLexicalDimension
	}
	return &LexicalEmbedder{dimension: dimension}
}

// Dimension returns the vector size.
func (e *LexicalEmbedder) Dimension() int { return e.dimension }

// EmbedDocuments embeds each text.
func (e *LexicalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query.
func (e *LexicalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *LexicalEmbedder) embed(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		// The top bit picks the sign.
		if sum&0x80000000 != 0 {
			v[int(sum%uint32(e.dimension))] -= 1
		} else {
			v[int(sum%uint32(e.dimension))] += 1
		}
	}
	return normalize(v)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := lexicalStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

// stem strips a plural or possessive "s" so "trees" and "tree" collide.
func stem(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		return word[:len(word)-1]
	}
	return word
}
