package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	out, err := Normalize([][]float32{{3, 4}, {0, 0}, {0, -2}})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.InDeltaSlice(t, []float32{0.6, 0.8}, out[0], 1e-6)
	assert.Equal(t, []float32{0, 0}, out[1])
	assert.InDeltaSlice(t, []float32{0, -1}, out[2], 1e-6)
}

func TestNormalize_Idempotent(t *testing.T) {
	once, err := Normalize([][]float32{{1, 2, 3}, {-0.5, 0.25, 8}})
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	for i := range once {
		assert.True(t, IsUnit(once[i], 1e-6))
		assert.InDeltaSlice(t, once[i], twice[i], 1e-6)
	}
}

func TestNormalize_ZeroSafe(t *testing.T) {
	out, err := Normalize([][]float32{{0, 0, 0}, {1e-30, 0, 0}})
	require.NoError(t, err)
	for _, row := range out {
		for _, v := range row {
			assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		}
	}
	assert.Equal(t, []float32{0, 0, 0}, out[0])
}

func TestNormalize_RejectsRagged(t *testing.T) {
	_, err := Normalize([][]float32{{1, 2}, {1}})
	assert.ErrorIs(t, err, ErrNotMatrix)

	_, err = NormalizeFloat64([][]float64{{1}, {1, 2}})
	assert.ErrorIs(t, err, ErrNotMatrix)
}

func TestNormalize_RejectsEmptyRows(t *testing.T) {
	_, err := Normalize([][]float32{{}})
	assert.ErrorIs(t, err, ErrNotMatrix)

	_, err = Normalize([][]float32{{}, {}})
	assert.ErrorIs(t, err, ErrNotMatrix)

	_, err = NormalizeFloat64([][]float64{{}, {1}})
	assert.ErrorIs(t, err, ErrNotMatrix)
}

func TestNormalizeFloat64(t *testing.T) {
	out, err := NormalizeFloat64([][]float64{{0, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}}, out)

	empty, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := [][]float32{{3, 4}}
	_, err := Normalize(in)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 4}}, in)
}
