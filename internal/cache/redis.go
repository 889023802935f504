package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voyagen/channelvault/internal/models"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "channelvault:"

// CatalogKey holds the catalog snapshot.
const CatalogKey = KeyPrefix + "catalog"

// Redis wraps a go-redis client with JSON helpers.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0") and returns a client.
// Call Ping to verify the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(c *redis.Client) *Redis {
	return &Redis{client: c}
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get fetches a key and JSON-unmarshals the value.
// Returns redis.Nil when the key does not exist.
func Get[T any](ctx context.Context, r *Redis, key string) (T, error) {
	var zero T
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return v, nil
}

// Set JSON-marshals v and stores it under key with the given TTL (0 = no expiry).
func Set(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// RedisStore keeps the catalog snapshot under a single Redis key.
type RedisStore struct {
	r   *Redis
	key string
	now func() time.Time
}

// NewRedisStore returns a store using CatalogKey.
func NewRedisStore(r *Redis) *RedisStore {
	return &RedisStore{r: r, key: CatalogKey, now: time.Now}
}

// Save overwrites the snapshot. Freshness is checked on Load, so no TTL is set.
func (s *RedisStore) Save(ctx context.Context, c *models.Catalog) error {
	if err := Set(ctx, s.r, s.key, SnapshotOf(c), 0); err != nil {
		return &Error{Op: "save", Backend: "redis", Err: err}
	}
	return nil
}

// Load returns the snapshot if present and fresh.
func (s *RedisStore) Load(ctx context.Context, maxAge time.Duration) (*models.Catalog, error) {
	snap, err := Get[Snapshot](ctx, s.r, s.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, &Error{Op: "load", Backend: "redis", Err: err}
	}
	if !snap.Usable(s.now(), maxAge) {
		return nil, ErrCacheMiss
	}
	return snap.Catalog(), nil
}
