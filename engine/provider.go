package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned by Connect once the provider has been shut down.
var ErrClosed = errors.New("engine: provider is shut down")

// Provider supplies the lifetime-scoped handle to a backing store. The handle
// is acquired once by Connect and released once by Shutdown.
type Provider[H any] interface {
	Connect(ctx context.Context) (H, error)
	Shutdown() error
}

// SQLiteProvider hands out a single *sql.DB for a SQLite DSN.
type SQLiteProvider struct {
	DSN          string
	MaxOpenConns int

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewSQLiteProvider returns a provider for dsn. maxOpenConns <= 0 keeps the
// driver default; in-memory databases are always limited to one connection
// because each connection would otherwise see its own empty database.
func NewSQLiteProvider(dsn string, maxOpenConns int) *SQLiteProvider {
	return &SQLiteProvider{DSN: dsn, MaxOpenConns: maxOpenConns}
}

// Connect opens and pings the database on first use and returns the same
// handle afterwards.
func (p *SQLiteProvider) Connect(ctx context.Context) (*sql.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.db != nil {
		return p.db, nil
	}
	if strings.TrimSpace(p.DSN) == "" {
		return nil, fmt.Errorf("engine: empty sqlite dsn")
	}
	dsn := p.DSN
	if !isMemoryDSN(dsn) {
		dsn = withFilePragmas(dsn)
	}
	db, err := Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", p.DSN, err)
	}
	switch {
	case isMemoryDSN(p.DSN):
		db.SetMaxOpenConns(1)
	case p.MaxOpenConns > 0:
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("engine: ping %s: %w", p.DSN, err)
	}
	p.db = db
	return db, nil
}

// Shutdown closes the handle. It is safe to call more than once.
func (p *SQLiteProvider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// BusyTimeout is how long a file-backed connection waits on a locked
// database before failing with SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// withFilePragmas enables WAL and a busy timeout on every pooled connection
// and makes write transactions take the lock up front. Parameters already
// present in dsn are left alone.
func withFilePragmas(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "journal_mode") {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", BusyTimeout.Milliseconds()))
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

var _ Provider[*sql.DB] = (*SQLiteProvider)(nil)
