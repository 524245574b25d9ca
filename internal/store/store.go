package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/projecthub/internal/backend"
)

// DefaultKey is the collection key the project list is stored under.
const DefaultKey = "projects"

// subscriberBuffer is the channel capacity for each subscriber.
const subscriberBuffer = 16

// Store is durable keyed storage for [Project] records.
//
// Store is safe for concurrent use. Every call that touches the collection
// holds the store mutex for its whole read-modify-write, so no two writes
// interleave and readers never observe a partial update. Two different calls
// can still race at the application level (the later write wins).
type Store struct {
	backend backend.Backend
	key     string
	now     func() time.Time

	mu sync.Mutex

	subscribers map[chan []Project]struct{}
	subMu       sync.RWMutex
}

// Option configures a [Store].
type Option func(*Store)

// WithKey overrides the collection key (default [DefaultKey]).
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a [Store] persisting through b.
func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend:     b,
		key:         DefaultKey,
		now:         time.Now,
		subscribers: make(map[chan []Project]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every project in insertion order. A collection that was never
// written yields an empty slice, not an error.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

// Get returns the project with the given id, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, id string) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return Project{}, err
	}
	if i := indexOf(projects, id); i >= 0 {
		return projects[i], nil
	}
	return Project{}, ErrNotFound
}

// Create validates d, assigns an id and timestamps, and appends the project.
//
// Endpoints with a URL start as pending, endpoints without one as disabled.
// Returns a [*ValidationError] when both URLs are empty.
func (s *Store) Create(ctx context.Context, d Draft) (Project, error) {
	if err := d.Validate(); err != nil {
		return Project{}, &ValidationError{Err: err}
	}

	now := s.now()
	p := Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Local:       newEndpoint(d.LocalURL),
		Cloud:       newEndpoint(d.CloudURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return Project{}, err
	}
	projects = append(projects, p)
	if err := s.save(ctx, projects); err != nil {
		return Project{}, err
	}

	s.notifySubscribers(projects)
	return p, nil
}

// Update merges patch into the stored project and bumps UpdatedAt.
//
// The merge is shallow per top-level field: nil fields are untouched. Setting
// an endpoint URL to empty disables it; changing it resets the endpoint to
// pending. Status and last check change only through a [CheckResult] patch.
// An empty patch is a no-op that returns the current record.
// Returns [ErrNotFound] if id does not exist.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (Project, error) {
	return s.Modify(ctx, id, func(Project) (Patch, error) {
		return patch, nil
	})
}

// Modify computes a patch from the current record and applies it atomically:
// no other store call can run between reading the record and writing the
// result. If fn returns an error nothing is written and the error is
// returned; if it returns an empty patch nothing is written.
func (s *Store) Modify(ctx context.Context, id string, fn func(current Project) (Patch, error)) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return Project{}, err
	}
	i := indexOf(projects, id)
	if i < 0 {
		return Project{}, ErrNotFound
	}

	patch, err := fn(projects[i])
	if err != nil {
		return Project{}, err
	}
	if patch.IsZero() {
		return projects[i], nil
	}

	p := projects[i]
	patch.apply(&p)
	p.UpdatedAt = s.now()
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	projects[i] = p

	if err := s.save(ctx, projects); err != nil {
		return Project{}, err
	}

	s.notifySubscribers(projects)
	return p, nil
}

// Delete removes the project with the given id. Deleting an id that does not
// exist is not an error and leaves the collection untouched.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(projects, id)
	if i < 0 {
		return nil
	}

	projects = append(projects[:i:i], projects[i+1:]...)
	if err := s.save(ctx, projects); err != nil {
		return err
	}

	s.notifySubscribers(projects)
	return nil
}

// Subscribe creates a new subscription and returns a channel receiving the
// full project list after every successful mutation.
//
// Caller must call [Store.Unsubscribe] when done to prevent resource leaks.
func (s *Store) Subscribe() <-chan []Project {
	ch := make(chan []Project, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (s *Store) Unsubscribe(ch <-chan []Project) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for subCh := range s.subscribers {
		if subCh == ch {
			delete(s.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends a copy of projects to every subscriber without
// blocking; full buffers drop the snapshot for that subscriber.
func (s *Store) notifySubscribers(projects []Project) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	if len(s.subscribers) == 0 {
		return
	}

	snapshot := append([]Project(nil), projects...)
	for ch := range s.subscribers {
		select {
		case ch <- snapshot:
		default:
			// subscriber is slow, drop the snapshot
		}
	}
}

// load reads and decodes the collection. Callers must hold s.mu.
func (s *Store) load(ctx context.Context) ([]Project, error) {
	data, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, backend.ErrNoData) {
		return []Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	projects := []Project{}
	if len(data) == 0 {
		return projects, nil
	}
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	if projects == nil {
		// stored literal null
		projects = []Project{}
	}
	return projects, nil
}

// save encodes and writes the whole collection. Callers must hold s.mu.
func (s *Store) save(ctx context.Context, projects []Project) error {
	data, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save projects: %w", err)
	}
	return nil
}

func indexOf(projects []Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
