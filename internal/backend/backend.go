package backend

import (
	"context"
	"errors"
)

// ErrNoData is returned by [Backend.Load] when nothing has been saved under
// the requested key yet.
var ErrNoData = errors.New("backend: no data for key")

// Backend is a keyed record store holding whole serialized aggregates.
//
// Implementations must be safe for concurrent use. Save replaces the value
// for a key atomically; there is no partial or row-level API.
type Backend interface {
	// Load returns the value stored under key, or [ErrNoData] if absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save overwrites the value stored under key.
	Save(ctx context.Context, key string, data []byte) error

	// Close releases any underlying connections. Safe to call more than once.
	Close() error
}
