package vector

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidateDimension rejects a non-positive dimension.
func ValidateDimension(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return nil
}

// ValidateQuotes checks a batch before any row is written: every text must be
// non-blank and every embedding must have width dim. All offending rows are
// reported together.
func ValidateQuotes(dim int, quotes []Quote) error {
	var result *multierror.Error
	for i, q := range quotes {
		if strings.TrimSpace(q.Text) == "" {
			result = multierror.Append(result, fmt.Errorf("%w: quote %d has empty text", ErrInvalidArgument, i))
		}
		if len(q.Embedding) != dim {
			result = multierror.Append(result, &DimensionError{Index: i, Want: dim, Got: len(q.Embedding)})
		}
	}
	return result.ErrorOrNil()
}

// ValidateEmbeddings checks that every vector has width dim.
func ValidateEmbeddings(dim int, vecs [][]float32) error {
	var result *multierror.Error
	for i, v := range vecs {
		if len(v) != dim {
			result = multierror.Append(result, &DimensionError{Index: i, Want: dim, Got: len(v)})
		}
	}
	return result.ErrorOrNil()
}

// ValidateSearch checks a query vector and options before storage is touched.
func ValidateSearch(dim int, query []float32, opts SearchOptions) error {
	if len(query) != dim {
		return &DimensionError{Index: -1, Want: dim, Got: len(query)}
	}
	if opts.TopN <= 0 {
		return fmt.Errorf("%w: top_n must be positive, got %d", ErrInvalidArgument, opts.TopN)
	}
	if !opts.Metric.Valid() {
		return &MetricError{Name: opts.Metric.String()}
	}
	return nil
}

// WithinThreshold drops matches whose distance exceeds threshold. A nil
// threshold keeps everything.
func WithinThreshold(matches []Match, threshold *float64) []Match {
	if threshold == nil {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if m.Distance <= *threshold {
			out = append(out, m)
		}
	}
	return out
}
