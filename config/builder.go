package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jpalmerr/projecthub"
	"github.com/jpalmerr/projecthub/internal/backend"
	"github.com/jpalmerr/projecthub/internal/monitor"
	"github.com/jpalmerr/projecthub/internal/store"
)

// OpenBackend opens the storage backend described by cfg.Storage.
//
// The caller owns the returned backend and must close it.
func OpenBackend(ctx context.Context, cfg *Config) (backend.Backend, error) {
	b, err := backend.Open(ctx, backend.Options{
		Driver:   cfg.Storage.Driver,
		Path:     cfg.Storage.Path,
		DSN:      cfg.Storage.DSN,
		Addr:     cfg.Storage.Addr,
		Password: cfg.Storage.Password,
		DB:       cfg.Storage.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	return b, nil
}

// HubOptions converts parsed configuration into SDK options for a Hub
// persisting through b.
func HubOptions(cfg *Config, b backend.Backend, logger *slog.Logger) ([]projecthub.Option, error) {
	policy, err := monitor.ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, err
	}

	opts := []projecthub.Option{
		projecthub.WithStore(store.New(b, store.WithKey(cfg.Storage.Key))),
		projecthub.WithSweepInterval(cfg.SweepInterval.Duration()),
		projecthub.WithProbeTimeout(cfg.ProbeTimeout.Duration()),
		projecthub.WithMergePolicy(policy),
		projecthub.WithPort(cfg.Port),
	}
	if cfg.StrictStatus {
		opts = append(opts, projecthub.WithStrictStatus())
	}
	if logger != nil {
		opts = append(opts, projecthub.WithLogger(logger))
	}
	return opts, nil
}
