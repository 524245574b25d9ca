package backend

import (
	"context"
	"sync"
)

// Memory is an in-process [Backend]. Values are copied on the way in and on
// the way out so callers can never alias stored bytes.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Load implements [Backend].
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.values[key]
	if !ok {
		return nil, ErrNoData
	}
	return append([]byte(nil), data...), nil
}

// Save implements [Backend].
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	cp := append([]byte(nil), data...)

	m.mu.Lock()
	m.values[key] = cp
	m.mu.Unlock()
	return nil
}

// Close implements [Backend]. It is a no-op.
func (m *Memory) Close() error {
	return nil
}
