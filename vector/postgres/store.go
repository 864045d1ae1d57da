package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"github.com/viant/quotevec/vector"
)

// DefaultTable matches the table name used by earlier deployments of the
// quote bot.
const DefaultTable = "vectors"

// Store is a vector.Store backed by a pgvector column.
type Store struct {
	table string
	dim   int

	mu sync.RWMutex
	db *sql.DB
}

// NewStore creates a store for table with embedding width dim. It is not
// usable until Attach hands it a connection.
func NewStore(table string, dim int) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := vector.ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if err := vector.ValidateDimension(dim); err != nil {
		return nil, err
	}
	return &Store{table: table, dim: dim}, nil
}

// SchemaDDL returns the statements that create the extension and table.
func SchemaDDL(table string, dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id        BIGSERIAL PRIMARY KEY,
    text      TEXT NOT NULL,
    label     TEXT,
    embedding vector(%d) NOT NULL
)`, table, dim),
	}
}

// SearchSQL returns the ranking query for metric.
func SearchSQL(table string, metric vector.Metric) string {
	return fmt.Sprintf(`SELECT id, text, label, embedding %s $1 AS distance FROM %s ORDER BY distance, id LIMIT $2`,
		metric.Operator(), table)
}

// Attach creates the schema if needed, checks the column width and makes the
// store ready.
func (s *Store) Attach(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("postgres: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, stmt := range SchemaDDL(s.table, s.dim) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return vector.Backend("create schema", errors.Wrap(err, "failed to create schema"))
		}
	}
	var width int
	err := db.QueryRowContext(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`, s.table).Scan(&width)
	if err != nil {
		return vector.Backend("read dimension", errors.Wrap(err, "failed to read embedding width"))
	}
	if width != s.dim {
		return fmt.Errorf("%w: table %s has vector(%d), configured %d", vector.ErrDimensionMismatch, s.table, width, s.dim)
	}
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

// Detach releases the connection; later calls fail with vector.ErrNotReady.
func (s *Store) Detach() {
	s.mu.Lock()
	s.db = nil
	s.mu.Unlock()
}

// Dimension implements vector.Store.
func (s *Store) Dimension() int { return s.dim }

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, vector.ErrNotReady
	}
	return s.db, nil
}

// Add implements vector.Store.
func (s *Store) Add(ctx context.Context, quotes []vector.Quote) ([]int64, error) {
	if len(quotes) == 0 {
		return nil, nil
	}
	if err := vector.ValidateQuotes(s.dim, quotes); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, vector.Backend("begin", errors.Wrap(err, "failed to begin transaction"))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(text, label, embedding) VALUES($1, $2, $3) RETURNING id`, s.table))
	if err != nil {
		return nil, vector.Backend("prepare insert", errors.Wrap(err, "failed to prepare insert"))
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(quotes))
	for _, q := range quotes {
		var id int64
		label := sql.NullString{String: q.Label, Valid: q.Label != ""}
		if err := stmt.QueryRowContext(ctx, q.Text, label, pgvector.NewVector(q.Embedding)).Scan(&id); err != nil {
			return nil, vector.Backend("insert", errors.Wrap(err, "failed to insert quote"))
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, vector.Backend("commit", errors.Wrap(err, "failed to commit"))
	}
	return ids, nil
}

// Search implements vector.Store.
func (s *Store) Search(ctx context.Context, query []float32, opts vector.SearchOptions) ([]vector.Match, error) {
	if err := vector.ValidateSearch(s.dim, query, opts); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, SearchSQL(s.table, opts.Metric), pgvector.NewVector(query), opts.TopN)
	if err != nil {
		return nil, vector.Backend("search", errors.Wrap(err, "failed to search quotes"))
	}
	defer rows.Close()

	var out []vector.Match
	for rows.Next() {
		var m vector.Match
		var label sql.NullString
		if err := rows.Scan(&m.ID, &m.Text, &label, &m.Distance); err != nil {
			return nil, vector.Backend("scan match", errors.Wrap(err, "failed to scan match"))
		}
		m.Label = label.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, vector.Backend("search", errors.Wrap(err, "failed to iterate matches"))
	}
	return vector.WithinThreshold(out, opts.Threshold), nil
}

// Delete implements vector.Store.
func (s *Store) Delete(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id); err != nil {
		return vector.Backend("delete", errors.Wrapf(err, "failed to delete quote %d", id))
	}
	return nil
}

// Get implements vector.Store.
func (s *Store) Get(ctx context.Context, id int64) (*vector.Quote, bool, error) {
	db, err := s.conn()
	if err != nil {
		return nil, false, err
	}
	var q vector.Quote
	var label sql.NullString
	var emb pgvector.Vector
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT id, text, label, embedding FROM %s WHERE id = $1`, s.table), id).
		Scan(&q.ID, &q.Text, &label, &emb)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, vector.Backend("get", errors.Wrapf(err, "failed to get quote %d", id))
	}
	q.Label = label.String
	q.Embedding = emb.Slice()
	return &q, true, nil
}

// ListAll implements vector.Store.
func (s *Store) ListAll(ctx context.Context) ([]vector.Quote, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT id, text, label FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, vector.Backend("list", errors.Wrap(err, "failed to list quotes"))
	}
	defer rows.Close()

	var out []vector.Quote
	for rows.Next() {
		var q vector.Quote
		var label sql.NullString
		if err := rows.Scan(&q.ID, &q.Text, &label); err != nil {
			return nil, vector.Backend("scan quote", errors.Wrap(err, "failed to scan quote"))
		}
		q.Label = label.String
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, vector.Backend("list", errors.Wrap(err, "failed to iterate quotes"))
	}
	return out, nil
}

// Count implements vector.Store.
func (s *Store) Count(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, vector.Backend("count", errors.Wrap(err, "failed to count quotes"))
	}
	return n, nil
}

// Reset implements vector.Store. DELETE keeps the id sequence, unlike
// TRUNCATE ... RESTART IDENTITY, so ids are never reused.
func (s *Store) Reset(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return vector.Backend("reset", errors.Wrap(err, "failed to reset quotes"))
	}
	return nil
}

// Reembed implements vector.Store.
func (s *Store) Reembed(ctx context.Context, ids []int64, embeddings [][]float32) error {
	if len(ids) != len(embeddings) {
		return fmt.Errorf("%w: %d ids for %d embeddings", vector.ErrInvalidArgument, len(ids), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}
	if err := vector.ValidateEmbeddings(s.dim, embeddings); err != nil {
		return err
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return vector.Backend("begin", errors.Wrap(err, "failed to begin transaction"))
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`UPDATE %s SET embedding = $1 WHERE id = $2`, s.table))
	if err != nil {
		return vector.Backend("prepare update", errors.Wrap(err, "failed to prepare update"))
	}
	defer stmt.Close()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, pgvector.NewVector(embeddings[i]), id); err != nil {
			return vector.Backend("update", errors.Wrapf(err, "failed to update quote %d", id))
		}
	}
	if err := tx.Commit(); err != nil {
		return vector.Backend("commit", errors.Wrap(err, "failed to commit"))
	}
	return nil
}

var _ vector.Store = (*Store)(nil)
