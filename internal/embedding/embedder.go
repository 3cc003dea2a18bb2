// Package embedding defines the Embedder capability and helpers shared by its
// providers.
package embedding

import (
	"context"
	"math"

	ragerr "documentor/internal/errors"
)

// Normalize scales vec to unit length in place. A zero vector is left as is.
func Normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// CheckDimensions verifies that every vector has length dim. A dim of 0
// accepts the length of the first vector.
func CheckDimensions(vectors [][]float32, dim int) (int, error) {
	for i, vec := range vectors {
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim || dim == 0 {
			return 0, ragerr.New(ragerr.CodeDimensionMismatch, "embedding dimension mismatch",
				ragerr.Field("index", i), ragerr.Field("expected", dim), ragerr.Field("actual", len(vec)))
		}
	}
	return dim, nil
}

// Embedder converts free text into a numeric vector representation.
// Implementations must be deterministic for a fixed model, and EmbedBatch
// must return vectors in the same order as its input.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
