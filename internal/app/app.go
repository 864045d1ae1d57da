// Package app assembles the quote bot's components from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/viant/quotevec/bot"
	"github.com/viant/quotevec/config"
	"github.com/viant/quotevec/embed"
	"github.com/viant/quotevec/engine"
	"github.com/viant/quotevec/quote"
	"github.com/viant/quotevec/service"
	"github.com/viant/quotevec/vector"
	"github.com/viant/quotevec/vector/bolt"
	"github.com/viant/quotevec/vector/postgres"
)

// App is the dependency bundle built once at startup.
type App struct {
	Config   *config.Config
	Embedder embed.Embedder
	Store    vector.Store
	Manager  *quote.Manager
	Services *service.Manager
	// Health is nil when the health endpoint is disabled.
	Health *service.HealthServer
}

// Build creates every component without performing I/O; call Boot to
// connect.
func Build(cfg *config.Config) (*App, error) {
	embedder, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	storeSvc, store, err := NewStoreService(cfg.Store, cfg.Embedder.Dimension)
	if err != nil {
		return nil, err
	}
	manager, err := quote.NewManager(embedder, store, quote.Options{
		DefaultMetric: cfg.Query.Metric,
		DefaultTopN:   cfg.Query.TopN,
	})
	if err != nil {
		return nil, err
	}
	services := service.NewManager(&service.EmbedderService{Embedder: embedder}, storeSvc)
	app := &App{
		Config:   cfg,
		Embedder: embedder,
		Store:    store,
		Manager:  manager,
		Services: services,
	}
	if cfg.Health.Addr != "" {
		app.Health = service.NewHealthServer(cfg.Health.Addr, services)
		services.Register(app.Health)
	}
	return app, nil
}

// NewEmbedder builds the configured embedding backend.
func NewEmbedder(cfg config.EmbedderConfig) (embed.Embedder, error) {
	switch cfg.Backend {
	case config.EmbedderHashing, "":
		return embed.NewHashingEmbedder(cfg.Dimension, cfg.BatchSize)
	case config.EmbedderOpenAI:
		return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Dimension:         cfg.Dimension,
			BatchSize:         cfg.BatchSize,
			SendDimensions:    cfg.SendDimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout.Duration,
		})
	}
	return nil, fmt.Errorf("app: unknown embedder backend %q", cfg.Backend)
}

// NewStoreService builds the configured store and the service that
// connects it.
func NewStoreService(cfg config.StoreConfig, dim int) (service.Service, vector.Store, error) {
	switch cfg.Backend {
	case config.StoreSQLite, "":
		store, err := vector.NewSQLiteStore(cfg.Table, dim)
		if err != nil {
			return nil, nil, err
		}
		return service.NewStoreService[*sql.DB]("store", func() engine.Provider[*sql.DB] {
			return engine.NewSQLiteProvider(cfg.DSN, cfg.MaxOpenConns)
		}, store), store, nil
	case config.StorePostgres:
		store, err := postgres.NewStore(cfg.Table, dim)
		if err != nil {
			return nil, nil, err
		}
		return service.NewStoreService[*sql.DB]("store", func() engine.Provider[*sql.DB] {
			p := postgres.NewProvider(cfg.DSN)
			if cfg.MaxOpenConns > 0 {
				p.Pool.MaxOpenConns = cfg.MaxOpenConns
			}
			return p
		}, store), store, nil
	case config.StoreBolt:
		store, err := bolt.NewStore(cfg.Table, dim)
		if err != nil {
			return nil, nil, err
		}
		return service.NewStoreService[*bbolt.DB]("store", func() engine.Provider[*bbolt.DB] {
			return bolt.NewProvider(cfg.Path, cfg.LockTimeout.Duration)
		}, store), store, nil
	}
	return nil, nil, fmt.Errorf("app: unknown store backend %q", cfg.Backend)
}

// Boot boots every service.
func (a *App) Boot(ctx context.Context) error {
	start := time.Now()
	if err := a.Services.BootAll(ctx); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"model":   a.Embedder.Model(),
		"device":  a.Embedder.Device(),
		"backend": a.Config.Store.Backend,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("services booted")
	return nil
}

// Shutdown stops every service in reverse boot order.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Services.ShutdownAll(ctx)
}

// NewBot builds the chat bot. The returned close function releases the
// message collector, if one is configured.
func (a *App) NewBot() (*bot.Bot, func() error, error) {
	cfg := a.Config
	b := bot.New(a.Manager, bot.Options{
		Prefix:               cfg.Bot.Prefix,
		Admins:               cfg.Bot.Admins,
		Ambient:              cfg.Bot.Ambient,
		Threshold:            cfg.Query.Threshold,
		Metric:               cfg.Query.Metric,
		AmbientRatePerMinute: cfg.Bot.AmbientRatePerMinute,
		PageSize:             cfg.Bot.PageSize,
		Workers:              cfg.Bot.Workers,
		CallTimeout:          cfg.Bot.CallTimeout.Duration,
	})
	closeFn := func() error { return nil }
	if cfg.Bot.CollectorPath != "" {
		collector, err := bot.OpenCollector(cfg.Bot.CollectorPath)
		if err != nil {
			return nil, nil, fmt.Errorf("app: open collector: %w", err)
		}
		b.SetCollector(collector)
		closeFn = collector.Close
	}
	return b, closeFn, nil
}
