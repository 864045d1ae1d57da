package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

//go:generate mockgen -source=embedder.go -destination=mocks/embedder.go -package=mocks

// DefaultBatchSize is the batch size hint reported when none is configured.
const DefaultBatchSize = 32

var (
	// ErrNotReady is returned when Embed is called before Boot or after Close.
	ErrNotReady = errors.New("embed: embedder not ready")

	// ErrEmptyInput reports a blank text in the batch.
	ErrEmptyInput = errors.New("embed: empty input")

	// ErrUnsupportedInput reports text the model cannot process, such as
	// invalid UTF-8.
	ErrUnsupportedInput = errors.New("embed: unsupported input")

	// ErrBackend marks failures of the model or remote endpoint.
	ErrBackend = errors.New("embed: backend failure")
)

// Embedder maps a batch of texts to vectors of width Dimension, one per input
// and in input order. Implementations are safe for concurrent use once booted.
type Embedder interface {
	// Boot loads the model. It must succeed before Embed is called.
	Boot(ctx context.Context) error

	// Ready reports whether Boot has completed and Close has not been called.
	Ready() bool

	// Embed returns one vector per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the width of every returned vector.
	Dimension() int

	// Model identifies the model producing the vectors.
	Model() string

	// BatchSizeHint is the preferred number of texts per Embed call.
	BatchSizeHint() int

	// Device describes where inference runs, for diagnostics.
	Device() string

	// Close releases the model.
	Close() error
}

// InputError identifies the batch position of a text that was rejected.
type InputError struct {
	Index int
	Err   error
}

func (e *InputError) Error() string { return fmt.Sprintf("embed: input %d: %v", e.Index, e.Err) }

func (e *InputError) Unwrap() error { return e.Err }

// BackendError wraps a model or endpoint failure.
type BackendError struct {
	Model string
	Err   error
}

func (e *BackendError) Error() string { return fmt.Sprintf("embed: %s: %v", e.Model, e.Err) }

func (e *BackendError) Unwrap() []error { return []error{ErrBackend, e.Err} }

// ValidateTexts rejects blank or non UTF-8 input before any inference.
func ValidateTexts(texts []string) error {
	for i, text := range texts {
		if !utf8.ValidString(text) {
			return &InputError{Index: i, Err: ErrUnsupportedInput}
		}
		if strings.TrimSpace(text) == "" {
			return &InputError{Index: i, Err: ErrEmptyInput}
		}
	}
	return nil
}

// Lifecycle tracks readiness for Embedder implementations.
type Lifecycle struct {
	ready atomic.Bool
}

// Ready reports whether the embedder has booted and not been closed.
func (l *Lifecycle) Ready() bool { return l.ready.Load() }

// Check returns ErrNotReady unless the embedder is ready.
func (l *Lifecycle) Check() error {
	if !l.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// MarkReady flips the embedder into the ready state.
func (l *Lifecycle) MarkReady() { l.ready.Store(true) }

// MarkClosed flips the embedder out of the ready state.
func (l *Lifecycle) MarkClosed() { l.ready.Store(false) }

// Batches splits texts into consecutive chunks of at most size.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
