package quote

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/viant/quotevec/embed"
	"github.com/viant/quotevec/vector"
)

// DefaultLabel tags quotes added without an explicit label.
const DefaultLabel = "quote"

// Options configures a Manager.
type Options struct {
	// DefaultMetric is used by Query when the caller does not pick one.
	DefaultMetric vector.Metric
	// DefaultTopN is used by Query when the caller passes TopN <= 0.
	DefaultTopN int
}

// QueryOptions narrows a Query. Nil fields fall back to the Manager
// defaults; a nil Threshold disables filtering.
type QueryOptions struct {
	TopN      int
	Threshold *float64
	Metric    *vector.Metric
}

// Entry is a quote to add in bulk.
type Entry struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// Manager orchestrates embedding and storage of quotes.
type Manager struct {
	embedder embed.Embedder
	store    vector.Store
	opts     Options
}

// NewManager wires an embedder to a store. Their dimensions must agree.
func NewManager(embedder embed.Embedder, store vector.Store, opts Options) (*Manager, error) {
	if embedder == nil {
		return nil, fmt.Errorf("quote: embedder is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("quote: store is nil")
	}
	if embedder.Dimension() != store.Dimension() {
		return nil, fmt.Errorf("%w: embedder %s produces %d, store expects %d",
			vector.ErrDimensionMismatch, embedder.Model(), embedder.Dimension(), store.Dimension())
	}
	if !opts.DefaultMetric.Valid() {
		return nil, &vector.MetricError{Name: opts.DefaultMetric.String()}
	}
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = 1
	}
	return &Manager{embedder: embedder, store: store, opts: opts}, nil
}

// Store exposes the underlying store.
func (m *Manager) Store() vector.Store { return m.store }

// Embedder exposes the underlying embedder.
func (m *Manager) Embedder() embed.Embedder { return m.embedder }

// embed runs texts through the embedder in hinted batch sizes and
// normalizes the result.
func (m *Manager) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, batch := range embed.Batches(texts, m.embedder.BatchSizeHint()) {
		vecs, err := m.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts", embed.ErrBackend, len(vecs), len(batch))
		}
		out = append(out, vecs...)
	}
	return vector.Normalize(out)
}

// AddQuote embeds text and stores it, returning the new id. Either the quote
// is fully stored or nothing changes.
func (m *Manager) AddQuote(ctx context.Context, text, label string) (int64, error) {
	ids, err := m.AddQuotes(ctx, []Entry{{Text: text, Label: label}})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AddQuotes stores entries in order and returns their ids.
func (m *Manager) AddQuotes(ctx context.Context, entries []Entry) ([]int64, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = strings.TrimSpace(e.Text)
		if texts[i] == "" {
			return nil, fmt.Errorf("%w at position %d", ErrEmptyText, i)
		}
	}
	vecs, err := m.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	quotes := make([]vector.Quote, len(entries))
	for i, e := range entries {
		label := e.Label
		if label == "" {
			label = DefaultLabel
		}
		quotes[i] = vector.Quote{Text: texts[i], Label: label, Embedding: vecs[i]}
	}
	ids, err := m.store.Add(ctx, quotes)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(ids)).Debug("quotes added")
	return ids, nil
}

// RemoveQuote deletes the quote at position index of ListQuotes and returns
// it. Positions shift after every removal; prefer RemoveQuoteByID.
func (m *Manager) RemoveQuote(ctx context.Context, index int) (vector.Quote, error) {
	quotes, err := m.store.ListAll(ctx)
	if err != nil {
		return vector.Quote{}, err
	}
	if index < 0 || index >= len(quotes) {
		return vector.Quote{}, &IndexError{Index: index, Count: len(quotes)}
	}
	q := quotes[index]
	if err := m.store.Delete(ctx, q.ID); err != nil {
		return vector.Quote{}, err
	}
	log.WithFields(log.Fields{"index": index, "id": q.ID}).Info("quote removed")
	return q, nil
}

// RemoveQuoteByID deletes the quote with id. An absent id is not an error.
func (m *Manager) RemoveQuoteByID(ctx context.Context, id int64) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	log.WithField("id", id).Info("quote removed")
	return nil
}

// ListQuotes returns every quote ordered by id.
func (m *Manager) ListQuotes(ctx context.Context) ([]vector.Quote, error) {
	return m.store.ListAll(ctx)
}

// CountQuotes returns the number of stored quotes.
func (m *Manager) CountQuotes(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

// Query embeds text and returns the closest quotes. The threshold is a
// distance cutoff in the chosen metric; see vector.Metric.DistanceFromSimilarity
// to derive one from a cosine similarity.
func (m *Manager) Query(ctx context.Context, text string, opts QueryOptions) ([]vector.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	search := vector.SearchOptions{TopN: opts.TopN, Metric: m.opts.DefaultMetric, Threshold: opts.Threshold}
	if search.TopN <= 0 {
		search.TopN = m.opts.DefaultTopN
	}
	if opts.Metric != nil {
		search.Metric = *opts.Metric
	}
	vecs, err := m.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	matches, err := m.store.Search(ctx, vecs[0], search)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"metric": search.Metric, "top_n": search.TopN, "matches": len(matches)}).Debug("quote query")
	return matches, nil
}

// Random returns a uniformly chosen quote, or ErrNoQuotes.
func (m *Manager) Random(ctx context.Context) (vector.Quote, error) {
	quotes, err := m.store.ListAll(ctx)
	if err != nil {
		return vector.Quote{}, err
	}
	if len(quotes) == 0 {
		return vector.Quote{}, ErrNoQuotes
	}
	return quotes[rand.IntN(len(quotes))], nil
}

// Reindex re-embeds every stored quote with the current embedder, keeping
// ids and text. It is needed after the embedding model changes.
func (m *Manager) Reindex(ctx context.Context) (int, error) {
	quotes, err := m.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	size := m.embedder.BatchSizeHint()
	if size <= 0 {
		size = embed.DefaultBatchSize
	}
	for start := 0; start < len(quotes); start += size {
		end := min(start+size, len(quotes))
		chunk := quotes[start:end]
		texts := make([]string, len(chunk))
		ids := make([]int64, len(chunk))
		for i, q := range chunk {
			texts[i], ids[i] = q.Text, q.ID
		}
		vecs, err := m.embed(ctx, texts)
		if err != nil {
			return start, err
		}
		if err := m.store.Reembed(ctx, ids, vecs); err != nil {
			return start, err
		}
	}
	log.WithFields(log.Fields{"count": len(quotes), "model": m.embedder.Model()}).Info("quotes reindexed")
	return len(quotes), nil
}
