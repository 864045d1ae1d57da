package bolt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// ErrClosed is returned by Connect once the provider has been shut down.
var ErrClosed = errors.New("bolt: provider is shut down")

// Provider hands out a single bbolt handle for Path.
type Provider struct {
	Path    string
	Timeout time.Duration

	mu     sync.Mutex
	db     *bbolt.DB
	closed bool
}

// NewProvider returns a provider for the database file at path. timeout
// bounds how long Connect waits for the file lock.
func NewProvider(path string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Provider{Path: path, Timeout: timeout}
}

// Connect opens the database on first use and returns the same handle
// afterwards.
func (p *Provider) Connect(_ context.Context) (*bbolt.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.db != nil {
		return p.db, nil
	}
	if p.Path == "" {
		return nil, fmt.Errorf("bolt: empty database path")
	}
	db, err := bbolt.Open(p.Path, 0600, &bbolt.Options{Timeout: p.Timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", p.Path, err)
	}
	p.db = db
	return db, nil
}

// Shutdown closes the handle. It is safe to call more than once.
func (p *Provider) Shutdown() error {
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
