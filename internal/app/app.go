// Package app wires the adapters, the comparison service and the history
// worker from a loaded configuration. Both binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ewilliams-labs/artistcompare/internal/adapters/spotify"
	"github.com/ewilliams-labs/artistcompare/internal/adapters/sqlite"
	"github.com/ewilliams-labs/artistcompare/internal/config"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/core/services"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
	"github.com/ewilliams-labs/artistcompare/internal/worker"
)

// App holds the long-lived components of a running process.
type App struct {
	Comparer *services.Comparer
	// History is nil when storage is disabled.
	History ports.ComparisonRepository

	pool       *worker.Pool
	closeStore func() error
}

// New builds the catalog client, resolver, history store, worker pool and
// comparer. Close releases them.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	// -- History store
	repo, closeStore, err := OpenStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// -- Spotify adapter
	catalog := spotify.New(ctx, spotify.Config{
		ClientID:          cfg.Spotify.ClientID,
		ClientSecret:      cfg.Spotify.ClientSecret,
		BaseURL:           cfg.Spotify.BaseURL,
		TokenURL:          cfg.Spotify.TokenURL,
		Market:            cfg.Spotify.Market,
		TopTracksLimit:    cfg.Spotify.TopTracksLimit,
		Timeout:           cfg.Spotify.Timeout,
		MaxAttempts:       cfg.Spotify.MaxAttempts,
		RetryBackoff:      cfg.Spotify.RetryBackoff,
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		Logger:            logger,
	})

	resolver, err := services.NewResolver(cfg.Resolver.Strategy, catalog, cfg.Resolver.Candidates, cfg.Resolver.MinSimilarity, logger)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	a := &App{History: repo, closeStore: closeStore}
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithTrackLimit(cfg.Spotify.TopTracksLimit),
	}
	if repo != nil {
		a.pool = worker.NewPool(repo, cfg.Worker.Count, cfg.Worker.QueueSize, logger)
		a.pool.Start()
		opts = append(opts, services.WithRecorder(a.pool))
	}
	a.Comparer = services.NewComparer(resolver, catalog, opts...)
	return a, nil
}

// Close drains the history queue and closes the store.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Stop()
	}
	return a.closeStore()
}

// OpenStore opens the configured history store. The "none" driver returns a
// nil repository and a no-op closer.
func OpenStore(cfg config.Storage) (ports.ComparisonRepository, func() error, error) {
	switch cfg.Driver {
	case "sqlite":
		dbAdapter, err := sqlite.NewAdapter(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return dbAdapter, dbAdapter.Close, nil
	case "none":
		return nil, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
