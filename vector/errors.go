package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch reports an embedding whose width differs from the
	// store dimension.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")

	// ErrInvalidDimension reports a non-positive store dimension.
	ErrInvalidDimension = errors.New("vector: invalid dimension")

	// ErrUnsupportedMetric reports an unrecognised metric name.
	ErrUnsupportedMetric = errors.New("vector: unsupported metric")

	// ErrNotReady reports use of a store before boot or after shutdown.
	ErrNotReady = errors.New("vector: store not ready")

	// ErrInvalidArgument reports malformed input such as a non-positive top-n
	// or an empty quote text.
	ErrInvalidArgument = errors.New("vector: invalid argument")

	// ErrBackend marks failures of the underlying storage engine.
	ErrBackend = errors.New("vector: backend failure")
)

// DimensionError describes a single embedding of the wrong width. Index is
// the position in the batch, or -1 for a query vector.
type DimensionError struct {
	Index int
	Want  int
	Got   int
}

func (e *DimensionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("vector: query dimension %d, want %d", e.Got, e.Want)
	}
	return fmt.Sprintf("vector: embedding %d has dimension %d, want %d", e.Index, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// MetricError describes an unrecognised metric name.
type MetricError struct {
	Name string
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("vector: unsupported metric %q (want cosine, euclidean or inner_product)", e.Name)
}

func (e *MetricError) Unwrap() error { return ErrUnsupportedMetric }

// BackendError wraps a storage engine failure with the operation that hit it.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return "vector: " + e.Op + ": " + e.Err.Error() }

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

// Backend wraps err as a BackendError for op. A nil err stays nil.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
