package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// FileKeyPattern restricts file backend keys to names that are safe as
// file names.
var FileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// File is a [Backend] that stores each key as <dir>/<key>.json.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a concurrent reader sees either the old or the new
// value in full.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file backend rooted at dir, creating the directory if
// needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file backend: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if !FileKeyPattern.MatchString(key) {
		return "", fmt.Errorf("file backend: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Load implements [Backend].
func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Save implements [Backend].
func (f *File) Save(_ context.Context, key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// remove the temp file on any failure path; after rename this is a no-op
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("failed to replace %s: %w", p, err)
	}
	return nil
}

// Close implements [Backend]. It is a no-op.
func (f *File) Close() error {
	return nil
}
