package index

import "github.com/viant/quotevec/vector"

// Index is an exact kNN index over int64-keyed embeddings.
type Index interface {
	// Build replaces the index content. ids and vectors must have the same
	// length and every vector the same width.
	Build(ids []int64, vectors [][]float32) error

	// Query returns up to k ids ordered by increasing distance to query under
	// metric, with their distances. k <= 0 returns every entry.
	Query(query []float32, k int, metric vector.Metric) (ids []int64, distances []float64, err error)

	// Len reports the number of indexed vectors.
	Len() int
}
