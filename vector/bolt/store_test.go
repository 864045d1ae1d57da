package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/quotevec/vector"
	"github.com/viant/quotevec/vector/storetest"
)

func TestStoreSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T, dim int) vector.Store {
		p := NewProvider(filepath.Join(t.TempDir(), "quotes.db"), 0)
		t.Cleanup(func() { _ = p.Shutdown() })
		db, err := p.Connect(context.Background())
		require.NoError(t, err)

		s, err := NewStore("", dim)
		require.NoError(t, err)
		require.NoError(t, s.Attach(context.Background(), db))
		return s
	})
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quotes.db")

	p := NewProvider(path, 0)
	db, err := p.Connect(ctx)
	require.NoError(t, err)
	s, err := NewStore("", 2)
	require.NoError(t, err)
	require.NoError(t, s.Attach(ctx, db))
	ids, err := s.Add(ctx, []vector.Quote{{Text: "persisted", Embedding: storetest.Unit(1, 0)}})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, ids[0]))
	require.NoError(t, p.Shutdown())

	_, err = s.Count(ctx)
	require.Error(t, err)

	p = NewProvider(path, 0)
	defer p.Shutdown()
	db, err = p.Connect(ctx)
	require.NoError(t, err)

	wrong, err := NewStore("", 3)
	require.NoError(t, err)
	assert.ErrorIs(t, wrong.Attach(ctx, db), vector.ErrDimensionMismatch)

	s, err = NewStore("", 2)
	require.NoError(t, err)
	require.NoError(t, s.Attach(ctx, db))
	next, err := s.Add(ctx, []vector.Quote{{Text: "after reopen", Embedding: storetest.Unit(0, 1)}})
	require.NoError(t, err)
	assert.Greater(t, next[0], ids[0])
}

func TestStoreNotReady(t *testing.T) {
	s, err := NewStore("", 2)
	require.NoError(t, err)
	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, vector.ErrNotReady)

	_, err = NewProvider("", 0).Connect(context.Background())
	assert.Error(t, err)
}
