package projecthub

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/projecthub/internal/backend"
	"github.com/jpalmerr/projecthub/internal/prober"
	"github.com/jpalmerr/projecthub/internal/store"
)

// hubConfig holds mutable state during Hub construction.
type hubConfig struct {
	store           *store.Store
	backend         backend.Backend
	prober          prober.Prober
	probeTimeout    time.Duration
	strictStatus    bool
	sweepInterval   time.Duration
	mergePolicy     MergePolicy
	port            int
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)
}

// Option is a function that configures a [Hub] during construction.
//
// Options return an error if validation fails.
type Option func(*hubConfig) error

// WithStore uses an existing project store. It takes precedence over
// [WithBackend].
func WithStore(s *store.Store) Option {
	return func(cfg *hubConfig) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		cfg.store = s
		return nil
	}
}

// WithBackend persists projects through b. The caller keeps ownership of b
// and must close it after the Hub is stopped.
//
// Defaults to an in-memory backend.
func WithBackend(b backend.Backend) Option {
	return func(cfg *hubConfig) error {
		if b == nil {
			return errors.New("backend cannot be nil")
		}
		cfg.backend = b
		return nil
	}
}

// WithProber replaces the HTTP prober. [WithProbeTimeout] and
// [WithStrictStatus] have no effect when a custom prober is set.
func WithProber(p prober.Prober) Option {
	return func(cfg *hubConfig) error {
		if p == nil {
			return errors.New("prober cannot be nil")
		}
		cfg.prober = p
		return nil
	}
}

// WithProbeTimeout bounds each probe. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithProbeTimeout(d time.Duration) Option {
	return func(cfg *hubConfig) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		cfg.probeTimeout = d
		return nil
	}
}

// WithStrictStatus makes HTTP responses with status 400 or above count as
// offline. By default any completed response counts as online.
func WithStrictStatus() Option {
	return func(cfg *hubConfig) error {
		cfg.strictStatus = true
		return nil
	}
}

// WithSweepInterval sets how often every project is re-checked in the
// background. Defaults to 60 seconds. The first sweep runs one interval
// after [Hub.Start].
//
// Returns an error if the duration is zero or negative.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *hubConfig) error {
		if d <= 0 {
			return errors.New("sweep interval must be positive")
		}
		cfg.sweepInterval = d
		return nil
	}
}

// WithMergePolicy sets how overlapping checks of one project are merged.
// Defaults to [LastWriteWins].
func WithMergePolicy(p MergePolicy) Option {
	return func(cfg *hubConfig) error {
		if p != LastWriteWins && p != RejectStale {
			return errors.New("unknown merge policy")
		}
		cfg.mergePolicy = p
		return nil
	}
}

// WithPort serves the HTTP API on port when running via [Hub.Run].
// Without it Run serves nothing.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *hubConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *hubConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called for every persisted
// endpoint check, whether manual or from the sweep.
//
// Multiple callbacks run in registration order. Callbacks must be
// non-blocking; they run on the goroutine that performed the check. Panics
// are recovered and logged.
//
// Example:
//
//	hub, err := projecthub.New(
//	    projecthub.WithStatusCallback(func(r projecthub.StatusResult) {
//	        if r.Changed() && r.Status == projecthub.StatusOffline {
//	            log.Printf("ALERT: %s %s is offline", r.ProjectName, r.Endpoint)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(StatusResult)) Option {
	return func(cfg *hubConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}
