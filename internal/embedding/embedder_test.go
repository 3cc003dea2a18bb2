package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "documentor/internal/errors"
)

func TestNormalize(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)

	var norm float64
	for _, v := range Normalize([]float32{1, 2, 3, 4, 5}) {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestCheckDimensions(t *testing.T) {
	dim, err := CheckDimensions([][]float32{{1, 2}, {3, 4}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	_, err = CheckDimensions([][]float32{{1, 2}, {3}}, 0)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeDimensionMismatch))

	_, err = CheckDimensions([][]float32{{1, 2}}, 3)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeDimensionMismatch))

	_, err = CheckDimensions([][]float32{{}}, 0)
	assert.True(t, ragerr.HasCode(err, ragerr.CodeDimensionMismatch))
}
