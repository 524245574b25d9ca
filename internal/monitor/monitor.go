package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/projecthub/internal/prober"
	"github.com/jpalmerr/projecthub/internal/store"
)

// DefaultInterval is the sweep period used when Start is given a
// non-positive interval.
const DefaultInterval = 60 * time.Second

// Store is the subset of [store.Store] the monitor persists through.
type Store interface {
	List(ctx context.Context) ([]store.Project, error)
	Update(ctx context.Context, id string, patch store.Patch) (store.Project, error)
	Modify(ctx context.Context, id string, fn func(store.Project) (store.Patch, error)) (store.Project, error)
}

// CheckHook is called after every persisted check with the project as it
// was read before the check and as it was written.
type CheckHook func(before, after store.Project)

// Monitor checks project endpoints and runs the periodic sweep.
//
// All methods are safe for concurrent use.
type Monitor struct {
	store   Store
	prober  prober.Prober
	logger  *slog.Logger
	policy  MergePolicy
	now     func() time.Time
	onCheck CheckHook

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithMergePolicy sets how overlapping checks are merged (default [LastWriteWins]).
func WithMergePolicy(p MergePolicy) Option {
	return func(m *Monitor) {
		m.policy = p
	}
}

// WithClock overrides the time source used for probe timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCheckHook registers fn to run after each persisted check.
func WithCheckHook(fn CheckHook) Option {
	return func(m *Monitor) {
		m.onCheck = fn
	}
}

// New creates a [Monitor]. A nil logger uses slog.Default().
func New(s Store, p prober.Prober, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		store:  s,
		prober: p,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the configured merge policy.
func (m *Monitor) Policy() MergePolicy {
	return m.policy
}

// probeOutcome is the result of probing one endpoint of a project.
type probeOutcome struct {
	url       string
	status    store.Status
	checkedAt time.Time
}

func (o *probeOutcome) endpoint() *store.Endpoint {
	if o == nil {
		return nil
	}
	at := o.checkedAt
	return &store.Endpoint{URL: o.url, Status: o.status, LastCheck: &at}
}

// CheckProject probes every configured endpoint of p and persists the
// results.
//
// The local and cloud probes run concurrently and independently. Only the
// checked endpoints are written; name and description are never touched.
// If the project was deleted meanwhile the result is dropped and nil is
// returned. Persistence failures are returned. Probe failures are not errors:
// they yield [store.StatusOffline].
func (m *Monitor) CheckProject(ctx context.Context, p store.Project) error {
	startedAt := m.now()

	var local, cloud *probeOutcome
	var wg sync.WaitGroup
	if p.Local.Configured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local = m.probe(ctx, p.ID, p.Local.URL)
		}()
	}
	if p.Cloud.Configured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cloud = m.probe(ctx, p.ID, p.Cloud.URL)
		}()
	}
	wg.Wait()

	if local == nil && cloud == nil {
		return nil
	}

	var (
		updated store.Project
		err     error
		before  = p
	)
	switch m.policy {
	case RejectStale:
		updated, err = m.store.Modify(ctx, p.ID, func(current store.Project) (store.Patch, error) {
			before = current
			var l, c *store.Endpoint
			if fresh(current.Local, local, startedAt) {
				l = local.endpoint()
			}
			if fresh(current.Cloud, cloud, startedAt) {
				c = cloud.endpoint()
			}
			patch := store.CheckResult(l, c)
			if patch.IsZero() {
				m.logger.Debug("discarding stale check", "project_id", p.ID, "started_at", startedAt)
			}
			return patch, nil
		})
	default:
		updated, err = m.store.Update(ctx, p.ID, store.CheckResult(local.endpoint(), cloud.endpoint()))
	}

	if errors.Is(err, store.ErrNotFound) {
		m.logger.Debug("project deleted during check", "project_id", p.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to persist check for project %s: %w", p.ID, err)
	}

	m.logTransition(p.ID, "local", before.Local, updated.Local)
	m.logTransition(p.ID, "cloud", before.Cloud, updated.Cloud)

	if m.onCheck != nil {
		m.onCheck(before, updated)
	}
	return nil
}

// fresh reports whether o should overwrite cur under [RejectStale].
func fresh(cur store.Endpoint, o *probeOutcome, startedAt time.Time) bool {
	if o == nil || cur.URL != o.url {
		return false
	}
	return cur.LastCheck == nil || startedAt.After(*cur.LastCheck)
}

// probe runs one probe with panic recovery; a panicking prober yields offline.
func (m *Monitor) probe(ctx context.Context, projectID, url string) (out *probeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			m.logger.Error("prober panic",
				"correlation_id", correlationID,
				"project_id", projectID,
				"url", url,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			out = &probeOutcome{url: url, status: store.StatusOffline, checkedAt: m.now()}
		}
	}()

	res := m.prober.Probe(ctx, url)
	status := store.StatusOffline
	if res.Reachable {
		status = store.StatusOnline
	}
	m.logger.Debug("probe finished",
		"project_id", projectID,
		"url", url,
		"reachable", res.Reachable,
		"status_code", res.StatusCode,
		"latency", res.Latency,
		"error", res.Err,
	)
	return &probeOutcome{url: url, status: status, checkedAt: m.now()}
}

func (m *Monitor) logTransition(projectID, which string, before, after store.Endpoint) {
	if before.Status == after.Status || before.URL != after.URL {
		return
	}
	m.logger.Info("endpoint status changed",
		"project_id", projectID,
		"endpoint", which,
		"url", after.URL,
		"from", before.Status,
		"to", after.Status,
	)
}

// Sweep runs one cycle synchronously: it reads the current project list and
// checks each project in order.
//
// Once ctx is cancelled no further projects are started, but the check in
// progress runs to completion. Persistence errors are logged and the sweep
// moves on to the next project.
func (m *Monitor) Sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("sweep panic",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	projects, err := m.store.List(ctx)
	if err != nil {
		m.logger.Warn("sweep failed to list projects", "error", err)
		return
	}

	// in-flight checks are never cancelled by Stop
	checkCtx := context.WithoutCancel(ctx)
	for i, p := range projects {
		if ctx.Err() != nil {
			m.logger.Debug("sweep interrupted", "skipped", len(projects)-i)
			return
		}
		if err := m.CheckProject(checkCtx, p); err != nil {
			m.logger.Warn("sweep check failed", "project_id", p.ID, "error", err)
		}
	}
}

// Start begins the periodic sweep in a background goroutine.
//
// The first cycle runs one interval after Start. A non-positive interval uses
// [DefaultInterval]. Start is idempotent while the sweep is running; after
// [Monitor.Stop] (or cancellation of ctx) it starts a fresh loop.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running && !closed(m.done) {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	if m.cancel != nil {
		// previous loop ended because its parent context was cancelled
		m.cancel()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done

	m.logger.Info("monitor sweep started", "interval", interval, "merge_policy", m.policy)

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if loopCtx.Err() != nil {
					return
				}
				// a started cycle checks every project even if Stop lands mid-cycle
				m.Sweep(context.WithoutCancel(loopCtx))
			}
		}
	}()
}

// Stop halts the sweep and waits for the cycle in progress to finish.
//
// Stop only prevents new cycles from starting: it never cancels an in-flight
// probe, and a cycle already running checks all of its projects. It is idempotent and safe to call
// when the sweep is not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	done := m.done
	if m.running {
		m.running = false
		m.cancel()
		m.cancel = nil
		m.logger.Info("monitor sweep stopped")
	}
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Running reports whether the background sweep is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running && !closed(m.done)
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
