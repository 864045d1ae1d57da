package vector

import (
	"errors"
	"fmt"
	"math"
)

// NormEpsilon is the floor applied to a row norm before dividing, so an
// all-zero row stays zero instead of becoming NaN.
const NormEpsilon = 1e-10

// ErrNotMatrix reports a batch whose rows do not share one width.
var ErrNotMatrix = errors.New("vector: batch is not a 2-D matrix")

// Normalize scales every row of batch to unit Euclidean length, dividing by
// max(norm, NormEpsilon). The input is left untouched. Ragged batches are
// rejected with ErrNotMatrix.
func Normalize(batch [][]float32) ([][]float32, error) {
	if err := checkMatrix(len(batch), func(i int) int { return len(batch[i]) }); err != nil {
		return nil, err
	}
	out := make([][]float32, len(batch))
	for i, row := range batch {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		out[i] = scale(len(row), sum, func(j int) float64 { return float64(row[j]) })
	}
	return out, nil
}

// NormalizeFloat64 is Normalize for float64 input; the output is float32.
func NormalizeFloat64(batch [][]float64) ([][]float32, error) {
	if err := checkMatrix(len(batch), func(i int) int { return len(batch[i]) }); err != nil {
		return nil, err
	}
	out := make([][]float32, len(batch))
	for i, row := range batch {
		var sum float64
		for _, v := range row {
			sum += v * v
		}
		out[i] = scale(len(row), sum, func(j int) float64 { return row[j] })
	}
	return out, nil
}

// IsUnit reports whether v has unit length within tol.
func IsUnit(v []float32, tol float64) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Abs(math.Sqrt(sum)-1) <= tol
}

func scale(n int, sumSquares float64, at func(int) float64) []float32 {
	norm := math.Max(math.Sqrt(sumSquares), NormEpsilon)
	row := make([]float32, n)
	for j := 0; j < n; j++ {
		row[j] = float32(at(j) / norm)
	}
	return row
}

func checkMatrix(rows int, width func(int) int) error {
	if rows == 0 {
		return nil
	}
	w := width(0)
	if w == 0 {
		return fmt.Errorf("%w: row 0 is empty", ErrNotMatrix)
	}
	for i := 1; i < rows; i++ {
		if width(i) != w {
			return fmt.Errorf("%w: row %d has width %d, row 0 has %d", ErrNotMatrix, i, width(i), w)
		}
	}
	return nil
}
