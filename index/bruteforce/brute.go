package bruteforce

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/quotevec/index"
	"github.com/viant/quotevec/vector"
)

// Index is a brute-force vector index.
type Index struct {
	ids  []int64
	vecs [][]float32
	dim  int
}

// Build loads ids and vectors.
func (i *Index) Build(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	return nil
}

// Len implements index.Index.
func (i *Index) Len() int { return len(i.ids) }

// Query returns the top-k entries by increasing distance under metric.
func (i *Index) Query(query []float32, k int, metric vector.Metric) ([]int64, []float64, error) {
	if !metric.Valid() {
		return nil, nil, &vector.MetricError{Name: metric.String()}
	}
	if len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	type scored struct {
		idx      int
		distance float64
	}
	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		d, err := metric.Distance(query, i.vecs[j])
		if err != nil {
			return nil, nil, err
		}
		if math.IsNaN(d) {
			continue
		}
		scoreds = append(scoreds, scored{idx: j, distance: d})
	}
	sort.Slice(scoreds, func(a, b int) bool {
		if scoreds[a].distance != scoreds[b].distance {
			return scoreds[a].distance < scoreds[b].distance
		}
		return i.ids[scoreds[a].idx] < i.ids[scoreds[b].idx]
	})
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]int64, k)
	outDistances := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outDistances[n] = scoreds[n].distance
	}
	return outIDs, outDistances, nil
}

var _ index.Index = (*Index)(nil)
