package postgres

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/lib/pq" // register postgres driver
	"github.com/pkg/errors"
)

// ErrClosed is returned by Connect once the provider has been shut down.
var ErrClosed = errors.New("postgres: provider is shut down")

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig suits a single bot process.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Provider hands out a single pooled *sql.DB for a PostgreSQL DSN.
type Provider struct {
	DSN  string
	Pool PoolConfig

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewProvider returns a provider for dsn with the default pool settings.
func NewProvider(dsn string) *Provider {
	return &Provider{DSN: dsn, Pool: DefaultPoolConfig()}
}

// Connect opens and pings the database on first use and returns the same
// handle afterwards.
func (p *Provider) Connect(ctx context.Context) (*sql.DB, error) {
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
	if p.DSN == "" {
		return nil, errors.New("postgres: empty dsn")
	}
	db, err := sql.Open("postgres", p.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(p.Pool.MaxOpenConns)
	db.SetMaxIdleConns(p.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(p.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.Pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	p.db = db
	return db, nil
}

// Shutdown closes the pool. It is safe to call more than once.
func (p *Provider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return errors.Wrap(err, "failed to close database")
}
