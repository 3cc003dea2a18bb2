// Package hashing implements a local embedder based on the hashing trick.
// Vectors depend only on the input text, so the embedder needs no corpus
// preparation and its dimension never changes.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"documentor/internal/embedding"
	ragerr "documentor/internal/errors"
)

// DefaultDimension is the vector length used when none is configured.
const DefaultDimension = 512

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder maps term frequencies into a fixed number of signed buckets.
type Embedder struct {
	dimension int
	stopwords map[string]struct{}
}

// New returns a hashing embedder producing vectors of the given dimension.
func New(dimension int) (*Embedder, error) {
	if dimension <= 0 {
		return nil, ragerr.New(ragerr.CodeConfigInvalid, "hashing embedder dimension must be positive",
			ragerr.Field("dimension", dimension))
	}
	return &Embedder{
		dimension: dimension,
		stopwords: defaultStopwords(),
	}, nil
}

func (e *Embedder) Name() string { return "hashing" }

func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes a sublinear term-frequency vector for text. Text without
// any indexable token yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[int]float64)
	for _, tok := range e.tokenize(text) {
		idx, sign := e.bucket(tok)
		counts[idx] += sign
	}

	vec := make([]float32, e.dimension)
	for idx, c := range counts {
		if c == 0 {
			continue
		}
		// Damp repeated terms so one noisy word cannot dominate a chunk.
		w := 1 + math.Log(math.Abs(c))
		if c < 0 {
			w = -w
		}
		vec[idx] = float32(w)
	}
	return embedding.Normalize(vec), nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *Embedder) bucket(token string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}

func (e *Embedder) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too",
		"very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "does", "do",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
