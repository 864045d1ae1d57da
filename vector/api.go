package vector

import (
	"context"
)

// Quote is the persisted unit: text plus its embedding under a store
// assigned id.
type Quote struct {
	// ID is assigned by the store on insert. Ids are never reused, even after
	// the quote is deleted.
	ID int64 `json:"id"`

	// Text is the literal quote content and is never empty.
	Text string `json:"text"`

	// Label is an optional free-form tag. It takes no part in ranking.
	Label string `json:"label,omitempty"`

	// Embedding is the unit-norm vector derived from Text. Enumeration
	// methods leave it nil.
	Embedding []float32 `json:"-"`
}

// Match is a single search hit. Distance is measured under the metric the
// search was run with; lower means more similar.
type Match struct {
	Quote
	Distance float64 `json:"distance"`
}

// SearchOptions controls a nearest-neighbour search.
type SearchOptions struct {
	// TopN caps the number of results; it must be positive.
	TopN int

	// Metric selects the distance function. The zero value is Cosine.
	Metric Metric

	// Threshold, when set, drops ranked rows whose distance exceeds it. It is
	// applied after ranking and never widens the result beyond TopN.
	Threshold *float64
}

//go:generate mockgen -source=api.go -destination=mocks/store.go -package=mocks

// Store persists quotes with their embeddings and answers nearest-neighbour
// queries.
type Store interface {
	// Add validates every embedding against the store dimension and then
	// inserts the quotes in the supplied order, returning their ids. Nothing
	// is written when validation fails.
	Add(ctx context.Context, quotes []Quote) ([]int64, error)

	// Search returns up to opts.TopN quotes ordered by increasing distance to
	// query, ties broken by id.
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)

	// Delete removes the quote with the given id. Deleting an absent id is a
	// no-op.
	Delete(ctx context.Context, id int64) error

	// Get returns the quote with the given id, including its embedding, and
	// false when it does not exist.
	Get(ctx context.Context, id int64) (*Quote, bool, error)

	// ListAll returns every stored quote (without embeddings) ordered by id.
	ListAll(ctx context.Context) ([]Quote, error)

	// Count returns the number of stored quotes.
	Count(ctx context.Context) (int, error)

	// Reset deletes every quote. Ids handed out before Reset are still never
	// reused.
	Reset(ctx context.Context) error

	// Reembed replaces the embeddings of existing quotes, keeping their ids
	// and text. Unknown ids are skipped.
	Reembed(ctx context.Context, ids []int64, embeddings [][]float32) error

	// Dimension reports the embedding width the store enforces.
	Dimension() int
}
