package projecthub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/projecthub/internal/backend"
	"github.com/jpalmerr/projecthub/internal/monitor"
	"github.com/jpalmerr/projecthub/internal/prober"
	"github.com/jpalmerr/projecthub/internal/server"
	"github.com/jpalmerr/projecthub/internal/store"
)

const (
	defaultSweepInterval = monitor.DefaultInterval
	defaultProbeTimeout  = prober.DefaultTimeout
)

// Hub is the single entry point for managing and monitoring projects.
//
// Hub combines the project store, the status monitor and the optional HTTP
// API. It owns exactly one background sweep, controlled with [Hub.Start]
// and [Hub.Stop]. Manual operations such as [Hub.Refresh] may run while the
// sweep is mid-cycle.
//
// The typical lifecycle is:
//
//	hub, err := projecthub.New(projecthub.WithBackend(b), projecthub.WithPort(8080))
//	if err != nil {
//	    slog.Error("failed to create hub", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	hub.Run(ctx) // blocks until context cancelled
type Hub struct {
	store           *store.Store
	monitor         *monitor.Monitor
	httpProber      *prober.HTTPProber
	sweepInterval   time.Duration
	port            int
	logger          *slog.Logger
	statusCallbacks []func(StatusResult)

	// cache is the last known project list, used by Refresh.
	cacheMu sync.RWMutex
	cache   []Project
}

// New creates a [Hub] with the given options.
//
// Defaults:
//   - Backend: in memory
//   - Sweep interval: 60 seconds
//   - Probe timeout: 5 seconds
//   - Merge policy: [LastWriteWins]
//   - HTTP API: disabled
func New(opts ...Option) (*Hub, error) {
	cfg := &hubConfig{
		sweepInterval: defaultSweepInterval,
		probeTimeout:  defaultProbeTimeout,
		mergePolicy:   LastWriteWins,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	st := cfg.store
	if st == nil {
		b := cfg.backend
		if b == nil {
			b = backend.NewMemory()
		}
		st = store.New(b)
	}

	h := &Hub{
		store:           st,
		sweepInterval:   cfg.sweepInterval,
		port:            cfg.port,
		logger:          logger,
		statusCallbacks: cfg.statusCallbacks,
	}

	p := cfg.prober
	if p == nil {
		popts := []prober.Option{prober.WithTimeout(cfg.probeTimeout)}
		if cfg.strictStatus {
			popts = append(popts, prober.WithStatusCheck())
		}
		h.httpProber = prober.NewHTTPProber(popts...)
		p = h.httpProber
	}

	h.monitor = monitor.New(st, p, logger,
		monitor.WithMergePolicy(cfg.mergePolicy),
		monitor.WithCheckHook(h.onChecked),
	)
	return h, nil
}

// GetAll returns every project in insertion order.
func (h *Hub) GetAll(ctx context.Context) ([]Project, error) {
	projects, err := h.store.List(ctx)
	if err != nil {
		return nil, err
	}
	h.setCache(projects)
	return projects, nil
}

// Get returns one project, or an error matching [ErrNotFound].
func (h *Hub) Get(ctx context.Context, id string) (Project, error) {
	return h.store.Get(ctx, id)
}

// Add registers a project and runs one check before returning.
//
// The returned project reflects the check when it could be persisted;
// otherwise it is the freshly created record with pending endpoints. Returns
// an error matching [ErrValidation] when both URLs are empty.
func (h *Hub) Add(ctx context.Context, d Draft) (Project, error) {
	p, err := h.store.Create(ctx, d)
	if err != nil {
		return Project{}, err
	}
	h.putCached(p)
	h.logger.Info("project added", "project_id", p.ID, "name", p.Name)

	if err := h.monitor.CheckProject(ctx, p); err != nil {
		h.logger.Warn("initial check failed", "project_id", p.ID, "error", err)
		return p, nil
	}

	checked, err := h.store.Get(ctx, p.ID)
	if err != nil {
		return p, nil
	}
	return checked, nil
}

// Update applies a manual edit. Changing an endpoint URL resets it to
// pending; clearing it disables the endpoint.
func (h *Hub) Update(ctx context.Context, id string, patch Patch) (Project, error) {
	p, err := h.store.Update(ctx, id, patch)
	if err != nil {
		return Project{}, err
	}
	h.putCached(p)
	return p, nil
}

// Remove deletes a project. Removing an unknown id is not an error.
func (h *Hub) Remove(ctx context.Context, id string) error {
	if err := h.store.Delete(ctx, id); err != nil {
		return err
	}
	h.dropCached(id)
	h.logger.Info("project removed", "project_id", id)
	return nil
}

// Refresh checks one project now.
//
// The check uses the last known copy of the project. An unknown id is a
// no-op. Only persistence failures are returned.
func (h *Hub) Refresh(ctx context.Context, id string) error {
	p, ok := h.cached(id)
	if !ok {
		if _, err := h.GetAll(ctx); err != nil {
			return err
		}
		p, ok = h.cached(id)
	}
	if !ok {
		h.logger.Debug("refresh of unknown project ignored", "project_id", id)
		return nil
	}
	return h.monitor.CheckProject(ctx, p)
}

// RefreshMany checks the given projects one after another. An empty list
// refreshes every project.
//
// Projects deleted meanwhile are skipped silently. Other failures do not
// stop the remaining refreshes and are returned joined.
func (h *Hub) RefreshMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		projects, err := h.GetAll(ctx)
		if err != nil {
			return err
		}
		ids = make([]string, len(projects))
		for i, p := range projects {
			ids[i] = p.ID
		}
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Refresh(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Filter returns the projects matching q. See the package-level [Filter].
func (h *Hub) Filter(projects []Project, q Query) []Project {
	return Filter(projects, q)
}

// Seed adds each draft whose name is not already registered and returns how
// many were added. Names are compared case-insensitively.
func (h *Hub) Seed(ctx context.Context, drafts []Draft) (int, error) {
	existing, err := h.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[strings.ToLower(p.Name)] = true
	}

	added := 0
	for _, d := range drafts {
		key := strings.ToLower(strings.TrimSpace(d.Name))
		if names[key] {
			continue
		}
		if _, err := h.Add(ctx, d); err != nil {
			return added, fmt.Errorf("failed to seed project %q: %w", d.Name, err)
		}
		names[key] = true
		added++
	}
	return added, nil
}

// Subscribe returns a channel receiving the full project list after every
// change. Call [Hub.Unsubscribe] when done.
func (h *Hub) Subscribe() <-chan []Project {
	return h.store.Subscribe()
}

// Unsubscribe ends a subscription created with [Hub.Subscribe].
func (h *Hub) Unsubscribe(ch <-chan []Project) {
	h.store.Unsubscribe(ch)
}

// Start begins the background sweep. Start is non-blocking and idempotent.
func (h *Hub) Start(ctx context.Context) {
	h.monitor.Start(ctx, h.sweepInterval)
}

// Stop halts the background sweep, letting the cycle in progress check all
// of its projects. Stop is idempotent and safe to call before Start.
func (h *Hub) Stop() {
	h.monitor.Stop()
}

// Running reports whether the background sweep is active.
func (h *Hub) Running() bool {
	return h.monitor.Running()
}

// Close stops the sweep and releases idle probe connections.
func (h *Hub) Close() {
	h.Stop()
	h.httpProber.Close()
}

// Run starts the sweep and, if a port is configured, the HTTP API, then
// blocks until ctx is cancelled.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server
// fails to start.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("projecthub starting",
		"sweep_interval", h.sweepInterval.String(),
		"merge_policy", h.monitor.Policy().String(),
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	h.Start(ctx)

	if h.port > 0 {
		srv := server.New(h, h.port, h.logger)
		if err := srv.Start(ctx); err != nil {
			h.Close()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		h.logger.Info("api available", "url", fmt.Sprintf("http://localhost:%d/api/projects", h.port))
	}

	<-ctx.Done()
	h.Close()
	h.logger.Info("projecthub stopped")
	return nil
}

// Port returns the configured HTTP port, or 0 if the API is disabled.
func (h *Hub) Port() int {
	return h.port
}

// SweepInterval returns the configured interval between sweeps.
func (h *Hub) SweepInterval() time.Duration {
	return h.sweepInterval
}

// MergePolicy returns the configured merge policy.
func (h *Hub) MergePolicy() MergePolicy {
	return h.monitor.Policy()
}

// onChecked runs after every persisted check.
func (h *Hub) onChecked(before, after Project) {
	// a project removed while its check was persisting stays out of the cache
	h.replaceCached(after)

	if len(h.statusCallbacks) == 0 {
		return
	}
	for _, result := range checkResults(before, after) {
		for _, cb := range h.statusCallbacks {
			invokeCallbackSafe(cb, result, h.logger)
		}
	}
}

func (h *Hub) cached(id string) (Project, bool) {
	h.cacheMu.RLock()
	defer h.cacheMu.RUnlock()
	for _, p := range h.cache {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

func (h *Hub) setCache(projects []Project) {
	h.cacheMu.Lock()
	h.cache = append([]Project(nil), projects...)
	h.cacheMu.Unlock()
}

func (h *Hub) putCached(p Project) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	for i := range h.cache {
		if h.cache[i].ID == p.ID {
			h.cache[i] = p
			return
		}
	}
	h.cache = append(h.cache, p)
}

// replaceCached updates p's cache entry only if it is already cached.
func (h *Hub) replaceCached(p Project) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	for i := range h.cache {
		if h.cache[i].ID == p.ID {
			h.cache[i] = p
			return
		}
	}
}

func (h *Hub) dropCached(id string) {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	for i := range h.cache {
		if h.cache[i].ID == id {
			h.cache = append(h.cache[:i:i], h.cache[i+1:]...)
			return
		}
	}
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(StatusResult), result StatusResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"project_id", result.ProjectID,
				"endpoint", result.Endpoint,
			)
		}
	}()
	cb(result)
}
