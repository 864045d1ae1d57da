// Package storetest holds the behavioural suite every vector.Store backend
// must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/quotevec/vector"
)

// Factory returns an empty, ready store enforcing dimension dim.
type Factory func(t *testing.T, dim int) vector.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("add and list", func(t *testing.T) { testAddList(t, newStore(t, 2)) })
	t.Run("add validates before writing", func(t *testing.T) { testAddValidation(t, newStore(t, 2)) })
	t.Run("delete removes exactly one", func(t *testing.T) { testDelete(t, newStore(t, 2)) })
	t.Run("ids are never reused", func(t *testing.T) { testIDsNotReused(t, newStore(t, 2)) })
	t.Run("search ranking", func(t *testing.T) { testSearchRanking(t, newStore(t, 2)) })
	t.Run("search metrics", func(t *testing.T) { testSearchMetrics(t, newStore(t, 2)) })
	t.Run("search validation", func(t *testing.T) { testSearchValidation(t, newStore(t, 2)) })
	t.Run("get and reembed", func(t *testing.T) { testGetReembed(t, newStore(t, 2)) })
	t.Run("reset", func(t *testing.T) { testReset(t, newStore(t, 2)) })
}

// Unit returns v scaled to unit length.
func Unit(v ...float32) []float32 {
	out, err := vector.Normalize([][]float32{v})
	if err != nil {
		panic(err)
	}
	return out[0]
}

func seed(t *testing.T, s vector.Store, texts ...string) []int64 {
	t.Helper()
	angles := [][]float32{{1, 0}, {0.8, 0.6}, {0, 1}, {-1, 0}, {0.6, -0.8}}
	quotes := make([]vector.Quote, len(texts))
	for i, text := range texts {
		quotes[i] = vector.Quote{Text: text, Label: "quote", Embedding: Unit(angles[i%len(angles)]...)}
	}
	ids, err := s.Add(context.Background(), quotes)
	require.NoError(t, err)
	require.Len(t, ids, len(texts))
	return ids
}

func texts(quotes []vector.Quote) []string {
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.Text
	}
	return out
}

func matchTexts(matches []vector.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Text
	}
	return out
}

func testAddList(t *testing.T, s vector.Store) {
	ctx := context.Background()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ids := seed(t, s, "hello world", "second", "third")
	assert.Less(t, ids[0], ids[1])
	assert.Less(t, ids[1], ids[2])

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world", "second", "third"}, texts(all))
	for i, q := range all {
		assert.Equal(t, ids[i], q.ID)
		assert.Equal(t, "quote", q.Label)
		assert.Nil(t, q.Embedding)
	}

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, s.Dimension())

	ids, err = s.Add(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func testAddValidation(t *testing.T, s vector.Store) {
	ctx := context.Background()
	_, err := s.Add(ctx, []vector.Quote{
		{Text: "ok", Embedding: Unit(1, 0)},
		{Text: "too wide", Embedding: Unit(1, 0, 0)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	var de *vector.DimensionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Index)
	assert.Equal(t, 3, de.Got)

	_, err = s.Add(ctx, []vector.Quote{{Text: "  ", Embedding: Unit(1, 0)}})
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testDelete(t *testing.T, s vector.Store) {
	ctx := context.Background()
	ids := seed(t, s, "one", "two", "three")

	require.NoError(t, s.Delete(ctx, ids[1]))
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, texts(all))

	require.NoError(t, s.Delete(ctx, ids[1]))
	require.NoError(t, s.Delete(ctx, ids[2]+1000))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testIDsNotReused(t *testing.T, s vector.Store) {
	ctx := context.Background()
	ids := seed(t, s, "one", "two")
	require.NoError(t, s.Delete(ctx, ids[1]))

	next := seed(t, s, "three")
	assert.Greater(t, next[0], ids[1])

	require.NoError(t, s.Reset(ctx))
	after := seed(t, s, "four")
	assert.Greater(t, after[0], next[0])
}

func testSearchRanking(t *testing.T, s vector.Store) {
	ctx := context.Background()
	seed(t, s, "east", "east-north-east", "north", "west", "south-east")

	matches, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 3})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"east", "east-north-east", "south-east"}, matchTexts(matches))
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)

	all, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 50})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "west", all[4].Text)

	strict := 1e-6
	exact, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 5, Threshold: &strict})
	require.NoError(t, err)
	assert.Equal(t, []string{"east"}, matchTexts(exact))

	none, err := s.Search(ctx, Unit(1, 1), vector.SearchOptions{TopN: 5, Threshold: &strict})
	require.NoError(t, err)
	assert.Empty(t, none)

	loose := 1.5
	capped, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 2, Threshold: &loose})
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func testSearchMetrics(t *testing.T, s vector.Store) {
	ctx := context.Background()
	seed(t, s, "east", "east-north-east", "north")

	for _, m := range vector.Metrics {
		t.Run(m.String(), func(t *testing.T) {
			matches, err := s.Search(ctx, Unit(0, 1), vector.SearchOptions{TopN: 3, Metric: m})
			require.NoError(t, err)
			assert.Equal(t, []string{"north", "east-north-east", "east"}, matchTexts(matches))
			want, err := m.Distance(Unit(0, 1), Unit(0, 1))
			require.NoError(t, err)
			assert.InDelta(t, want, matches[0].Distance, 1e-5)
		})
	}
}

func testSearchValidation(t *testing.T, s vector.Store) {
	ctx := context.Background()
	seed(t, s, "east")

	_, err := s.Search(ctx, Unit(1, 0, 0), vector.SearchOptions{TopN: 1})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	_, err = s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 0})
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)

	_, err = s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 1, Metric: vector.Metric(7)})
	assert.ErrorIs(t, err, vector.ErrUnsupportedMetric)
}

func testGetReembed(t *testing.T, s vector.Store) {
	ctx := context.Background()
	ids := seed(t, s, "east", "north")

	q, ok, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "east", q.Text)
	assert.InDeltaSlice(t, Unit(1, 0), q.Embedding, 1e-6)

	_, ok, err = s.Get(ctx, ids[1]+1000)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Reembed(ctx, []int64{ids[0], ids[1]}, [][]float32{Unit(0, 1), Unit(1, 0)}))
	matches, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "north", matches[0].Text)
	assert.Equal(t, ids[1], matches[0].ID)

	err = s.Reembed(ctx, []int64{ids[0]}, [][]float32{{1, 0, 0}})
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	err = s.Reembed(ctx, []int64{ids[0]}, nil)
	assert.ErrorIs(t, err, vector.ErrInvalidArgument)
}

func testReset(t *testing.T, s vector.Store) {
	ctx := context.Background()
	seed(t, s, "one", "two")
	require.NoError(t, s.Reset(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	matches, err := s.Search(ctx, Unit(1, 0), vector.SearchOptions{TopN: 1})
	require.NoError(t, err)
	assert.Empty(t, matches)
}
