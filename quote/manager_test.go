package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/quotevec/embed"
	embedmocks "github.com/viant/quotevec/embed/mocks"
	"github.com/viant/quotevec/engine"
	"github.com/viant/quotevec/vector"
	storemocks "github.com/viant/quotevec/vector/mocks"
	"golang.org/x/sync/errgroup"
)

const testDim = 256

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return newTestManagerDSN(t, ":memory:", 0)
}

func newTestManagerDSN(t *testing.T, dsn string, maxOpenConns int) *Manager {
	t.Helper()
	ctx := context.Background()
	p := engine.NewSQLiteProvider(dsn, maxOpenConns)
	t.Cleanup(func() { _ = p.Shutdown() })
	db, err := p.Connect(ctx)
	require.NoError(t, err)

	store, err := vector.NewSQLiteStore("", testDim)
	require.NoError(t, err)
	require.NoError(t, store.Attach(ctx, db))

	embedder, err := embed.NewHashingEmbedder(testDim, 2)
	require.NoError(t, err)
	require.NoError(t, embedder.Boot(ctx))

	m, err := NewManager(embedder, store, Options{DefaultMetric: vector.Cosine, DefaultTopN: 3})
	require.NoError(t, err)
	return m
}

func quoteTexts(quotes []vector.Quote) []string {
	return lo.Map(quotes, func(q vector.Quote, _ int) string { return q.Text })
}

func TestManagerAddList(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	before, err := m.CountQuotes(ctx)
	require.NoError(t, err)

	id, err := m.AddQuote(ctx, "  hello world ", "")
	require.NoError(t, err)
	assert.Positive(t, id)

	quotes, err := m.ListQuotes(ctx)
	require.NoError(t, err)
	assert.Contains(t, quoteTexts(quotes), "hello world")
	assert.Equal(t, DefaultLabel, quotes[0].Label)

	after, err := m.CountQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	stored, ok, err := m.Store().Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored.Embedding, testDim)
	assert.True(t, vector.IsUnit(stored.Embedding, 1e-5))

	_, err = m.AddQuote(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestManagerRemove(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	ids, err := m.AddQuotes(ctx, []Entry{{Text: "one"}, {Text: "two"}, {Text: "three"}})
	require.NoError(t, err)

	require.NoError(t, m.RemoveQuoteByID(ctx, ids[1]))
	quotes, err := m.ListQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, quoteTexts(quotes))

	require.NoError(t, m.RemoveQuoteByID(ctx, ids[1]))
	n, err := m.CountQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.RemoveQuote(ctx, n)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, IndexError{Index: 2, Count: 2}, *ie)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.RemoveQuote(ctx, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	n, err = m.CountQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "out of range removal mutates nothing")

	removed, err := m.RemoveQuote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "three", removed.Text)
	quotes, err = m.ListQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, quoteTexts(quotes))
}

func TestManagerQueryThreshold(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.AddQuotes(ctx, []Entry{{Text: "apple pie"}, {Text: "banana bread"}})
	require.NoError(t, err)

	loose := 2.0
	matches, err := m.Query(ctx, "apple tart", QueryOptions{TopN: 2, Threshold: &loose})
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "apple pie", matches[0].Text)
	if len(matches) > 1 {
		assert.Less(t, matches[0].Distance, matches[1].Distance)
	}

	strict := 0.0
	matches, err = m.Query(ctx, "apple tart", QueryOptions{TopN: 2, Threshold: &strict})
	require.NoError(t, err)
	assert.Empty(t, matches)

	for _, metric := range vector.Metrics {
		matches, err = m.Query(ctx, "apple tart", QueryOptions{TopN: 1, Metric: &metric})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "apple pie", matches[0].Text, metric.String())
	}

	_, err = m.Query(ctx, " ", QueryOptions{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestManagerRandomReindex(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	_, err := m.Random(ctx)
	assert.ErrorIs(t, err, ErrNoQuotes)

	_, err = m.AddQuotes(ctx, []Entry{{Text: "a quote"}, {Text: "b quote"}, {Text: "c quote"}})
	require.NoError(t, err)
	q, err := m.Random(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"a quote", "b quote", "c quote"}, q.Text)

	n, err := m.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	matches, err := m.Query(ctx, "b quote", QueryOptions{TopN: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b quote", matches[0].Text)
}

func TestManagerExportImport(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	_, err := m.AddQuotes(ctx, []Entry{{Text: "Ünïcode <quote>"}, {Text: "plain", Label: "custom"}})
	require.NoError(t, err)

	data, err := m.ExportJSON(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ünïcode <quote>")
	var records []ExportRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "custom", records[1].Label)

	other := newTestManager(t)
	n, err := other.Import(ctx, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = other.Import(ctx, strings.NewReader(`["legacy one", "legacy two"]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	quotes, err := other.ListQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ünïcode <quote>", "plain", "legacy one", "legacy two"}, quoteTexts(quotes))

	_, err = other.Import(ctx, strings.NewReader(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestManagerWithMocks(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("connection refused")

	testCases := []struct {
		name  string
		setup func(e *embedmocks.MockEmbedder, s *storemocks.MockStore)
		run   func(m *Manager) error
		check func(t *testing.T, err error)
	}{
		{
			name: "embedder not ready leaves store untouched",
			setup: func(e *embedmocks.MockEmbedder, s *storemocks.MockStore) {
				e.EXPECT().Embed(gomock.Any(), []string{"text"}).Return(nil, embed.ErrNotReady)
			},
			run: func(m *Manager) error {
				_, err := m.AddQuote(ctx, "text", "")
				return err
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, embed.ErrNotReady) },
		},
		{
			name: "store failure propagates unchanged",
			setup: func(e *embedmocks.MockEmbedder, s *storemocks.MockStore) {
				e.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{{3, 4}}, nil)
				s.EXPECT().Add(gomock.Any(), []vector.Quote{{Text: "text", Label: DefaultLabel, Embedding: []float32{0.6, 0.8}}}).
					Return(nil, vector.Backend("insert", backendErr))
			},
			run: func(m *Manager) error {
				_, err := m.AddQuote(ctx, "text", "")
				return err
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, vector.ErrBackend)
				assert.ErrorIs(t, err, backendErr)
			},
		},
		{
			name: "query applies defaults",
			setup: func(e *embedmocks.MockEmbedder, s *storemocks.MockStore) {
				e.EXPECT().Embed(gomock.Any(), []string{"hi"}).Return([][]float32{{0, 2}}, nil)
				s.EXPECT().Search(gomock.Any(), []float32{0, 1}, vector.SearchOptions{TopN: 5, Metric: vector.InnerProduct}).
					Return([]vector.Match{{Quote: vector.Quote{ID: 1, Text: "hello"}, Distance: -1}}, nil)
			},
			run: func(m *Manager) error {
				matches, err := m.Query(ctx, "hi", QueryOptions{})
				if err == nil && len(matches) != 1 {
					return errors.New("expected one match")
				}
				return err
			},
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "short embedder batch is a backend error",
			setup: func(e *embedmocks.MockEmbedder, s *storemocks.MockStore) {
				e.EXPECT().Embed(gomock.Any(), gomock.Any()).Return([][]float32{}, nil)
			},
			run: func(m *Manager) error {
				_, err := m.AddQuote(ctx, "text", "")
				return err
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, embed.ErrBackend) },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			e := embedmocks.NewMockEmbedder(ctrl)
			s := storemocks.NewMockStore(ctrl)
			e.EXPECT().Dimension().Return(2).AnyTimes()
			e.EXPECT().BatchSizeHint().Return(32).AnyTimes()
			e.EXPECT().Model().Return("mock").AnyTimes()
			s.EXPECT().Dimension().Return(2).AnyTimes()
			tc.setup(e, s)

			m, err := NewManager(e, s, Options{DefaultMetric: vector.InnerProduct, DefaultTopN: 5})
			require.NoError(t, err)
			tc.check(t, tc.run(m))
		})
	}
}

func TestNewManagerValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	e := embedmocks.NewMockEmbedder(ctrl)
	s := storemocks.NewMockStore(ctrl)
	e.EXPECT().Dimension().Return(384).AnyTimes()
	e.EXPECT().Model().Return("mock").AnyTimes()
	s.EXPECT().Dimension().Return(768).AnyTimes()

	_, err := NewManager(e, s, Options{})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	_, err = NewManager(nil, s, Options{})
	assert.Error(t, err)
}

func TestManagerConcurrentFileStore(t *testing.T) {
	ctx := context.Background()
	m := newTestManagerDSN(t, filepath.Join(t.TempDir(), "quotes.sqlite"), 0)

	const workers, perWorker = 8, 20
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if _, err := m.AddQuote(ctx, fmt.Sprintf("worker %d quote %d", w, i), ""); err != nil {
					return err
				}
				if _, err := m.Query(ctx, fmt.Sprintf("quote %d", i), QueryOptions{TopN: 1}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	count, err := m.CountQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, count)
}
