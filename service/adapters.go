package service

import (
	"context"
	"sync"

	"github.com/viant/quotevec/embed"
	"github.com/viant/quotevec/engine"
	"github.com/viant/quotevec/vector"
)

// EmbedderService adapts an embed.Embedder to Service.
type EmbedderService struct {
	Embedder embed.Embedder
}

// Name implements Service.
func (s *EmbedderService) Name() string { return "embedder" }

// Boot loads the model.
func (s *EmbedderService) Boot(ctx context.Context) error { return s.Embedder.Boot(ctx) }

// Shutdown releases the model.
func (s *EmbedderService) Shutdown(context.Context) error { return s.Embedder.Close() }

// HealthCheck fails until the embedder is ready.
func (s *EmbedderService) HealthCheck(context.Context) error {
	if !s.Embedder.Ready() {
		return embed.ErrNotReady
	}
	return nil
}

// AttachableStore is a vector.Store that receives its connection handle at
// boot time.
type AttachableStore[H any] interface {
	vector.Store
	Attach(ctx context.Context, handle H) error
	Detach()
}

// StoreService connects a provider and attaches the store to its handle.
// A provider is single-use once shut down, so NewProvider is called on
// every boot.
type StoreService[H any] struct {
	name        string
	newProvider func() engine.Provider[H]
	store       AttachableStore[H]

	mu       sync.Mutex
	provider engine.Provider[H]
}

// NewStoreService returns a store service named name.
func NewStoreService[H any](name string, newProvider func() engine.Provider[H], store AttachableStore[H]) *StoreService[H] {
	return &StoreService[H]{name: name, newProvider: newProvider, store: store}
}

// Name implements Service.
func (s *StoreService[H]) Name() string { return s.name }

// Store returns the attached store.
func (s *StoreService[H]) Store() vector.Store { return s.store }

// Boot connects and attaches.
func (s *StoreService[H]) Boot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	provider := s.newProvider()
	handle, err := provider.Connect(ctx)
	if err != nil {
		_ = provider.Shutdown()
		return err
	}
	if err := s.store.Attach(ctx, handle); err != nil {
		_ = provider.Shutdown()
		return err
	}
	s.provider = provider
	return nil
}

// Shutdown detaches the store and closes the connection.
func (s *StoreService[H]) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Detach()
	if s.provider == nil {
		return nil
	}
	err := s.provider.Shutdown()
	s.provider = nil
	return err
}

// HealthCheck runs a cheap query against the store.
func (s *StoreService[H]) HealthCheck(ctx context.Context) error {
	_, err := s.store.Count(ctx)
	return err
}
