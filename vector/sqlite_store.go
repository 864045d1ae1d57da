package vector

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SQLiteStore is a Store backed by a SQLite table. Ranking runs inside SQLite
// through the distance functions registered by the engine package, so the
// handle passed to Attach must come from engine.Open or a provider built on
// it.
type SQLiteStore struct {
	table string
	dim   int

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store for table with embedding width dim. The
// store is not usable until Attach hands it a connection.
func NewSQLiteStore(table string, dim int) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateIdentifier(table); err != nil {
		return nil, err
	}
	if err := ValidateDimension(dim); err != nil {
		return nil, err
	}
	return &SQLiteStore{table: table, dim: dim}, nil
}

// Attach ensures the schema exists in db and makes the store ready.
func (s *SQLiteStore) Attach(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(ctx, db, s.table, s.dim); err != nil {
		return err
	}
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	return nil
}

// Detach releases the connection; later calls fail with ErrNotReady. The
// connection itself belongs to its provider and is not closed.
func (s *SQLiteStore) Detach() {
	s.mu.Lock()
	s.db = nil
	s.mu.Unlock()
}

// Dimension implements Store.
func (s *SQLiteStore) Dimension() int { return s.dim }

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotReady
	}
	return s.db, nil
}

// Add implements Store. All rows are inserted in one transaction.
func (s *SQLiteStore) Add(ctx context.Context, quotes []Quote) ([]int64, error) {
	if len(quotes) == 0 {
		return nil, nil
	}
	if err := ValidateQuotes(s.dim, quotes); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Backend("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(text, label, embedding) VALUES(?, ?, ?)`, s.table))
	if err != nil {
		return nil, Backend("prepare insert", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(quotes))
	for _, q := range quotes {
		emb, err := EncodeEmbedding(q.Embedding)
		if err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, q.Text, nullString(q.Label), emb)
		if err != nil {
			return nil, Backend("insert", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, Backend("insert id", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, Backend("commit", err)
	}
	return ids, nil
}

// Search implements Store.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if err := ValidateSearch(s.dim, query, opts); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q, err := EncodeEmbedding(query)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(`SELECT id, text, label, %s(embedding, ?) AS distance FROM %s ORDER BY distance, id LIMIT ?`,
		opts.Metric.SQLFunc(), s.table)
	rows, err := db.QueryContext(ctx, stmt, q, opts.TopN)
	if err != nil {
		return nil, Backend("search", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var label sql.NullString
		if err := rows.Scan(&m.ID, &m.Text, &label, &m.Distance); err != nil {
			return nil, Backend("scan match", err)
		}
		m.Label = label.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, Backend("search", err)
	}
	return WithinThreshold(out, opts.Threshold), nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table), id)
	return Backend("delete", err)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Quote, bool, error) {
	db, err := s.conn()
	if err != nil {
		return nil, false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var q Quote
	var label sql.NullString
	var blob []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT id, text, label, embedding FROM %s WHERE id = ?`, s.table), id).
		Scan(&q.ID, &q.Text, &label, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Backend("get", err)
	}
	q.Label = label.String
	if q.Embedding, err = DecodeEmbedding(blob); err != nil {
		return nil, false, err
	}
	return &q, true, nil
}

// ListAll implements Store.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Quote, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT id, text, label FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, Backend("list", err)
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		var q Quote
		var label sql.NullString
		if err := rows.Scan(&q.ID, &q.Text, &label); err != nil {
			return nil, Backend("scan quote", err)
		}
		q.Label = label.String
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, Backend("list", err)
	}
	return out, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var n int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, Backend("count", err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table))
	return Backend("reset", err)
}

// Reembed implements Store.
func (s *SQLiteStore) Reembed(ctx context.Context, ids []int64, embeddings [][]float32) error {
	if len(ids) != len(embeddings) {
		return fmt.Errorf("%w: %d ids for %d embeddings", ErrInvalidArgument, len(ids), len(embeddings))
	}
	if len(ids) == 0 {
		return nil
	}
	if err := ValidateEmbeddings(s.dim, embeddings); err != nil {
		return err
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Backend("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`UPDATE %s SET embedding = ? WHERE id = ?`, s.table))
	if err != nil {
		return Backend("prepare update", err)
	}
	defer stmt.Close()
	for i, id := range ids {
		emb, err := EncodeEmbedding(embeddings[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, emb, id); err != nil {
			return Backend("update", err)
		}
	}
	return Backend("commit", tx.Commit())
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
