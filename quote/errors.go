package quote

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange reports a positional removal outside [0, count).
	ErrIndexOutOfRange = errors.New("quote: index out of range")

	// ErrEmptyText reports a blank quote.
	ErrEmptyText = errors.New("quote: empty text")

	// ErrNoQuotes is returned by Random when the store is empty.
	ErrNoQuotes = errors.New("quote: no quotes available")
)

// IndexError describes a positional removal that missed the list.
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("quote: index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }
