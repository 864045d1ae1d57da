package vector

import (
	"fmt"

	"github.com/viant/vec/search"
)

// CosineDistance returns 1 - cosine similarity. A zero-magnitude operand is
// treated as orthogonal to everything, giving distance 1.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine distance on empty vectors")
	}
	return float64(search.Float32s(a).CosineDistance(b)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// InnerProductOf returns the dot product of a and b.
func InnerProductOf(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: inner product dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}
