package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultRedisPrefix namespaces collection keys: projecthub:{key}
const defaultRedisPrefix = "projecthub:"

// Redis is a [Backend] storing each collection as a single Redis string.
// SET replaces the whole value atomically.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. An empty prefix selects the default
// "projecthub:" namespace.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to the Redis server at addr and verifies connectivity.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis backend: addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(client, ""), nil
}

// Load implements [Backend].
func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", key, err)
	}
	return data, nil
}

// Save implements [Backend].
func (r *Redis) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Close implements [Backend].
func (r *Redis) Close() error {
	err := r.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
