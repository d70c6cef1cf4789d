// Package cache provides a small Redis-backed JSON cache. It is used to keep
// channel metadata warm across requests, cutting redundant upstream detail
// calls for channels that appear in many search results. Cache failures are
// never fatal; callers fall back to the upstream.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	prefix string
}

// NewManager creates a new cache manager with Redis backend. The prefix
// namespaces all keys written by this manager.
func NewManager(redisClient *redis.Client, prefix string) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Get retrieves a cached value into dest.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := m.redis.Get(ctx, m.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.Inc()
	return nil
}

// Set stores a value as JSON with the given TTL. Values with a non-positive
// TTL are not cached.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, m.prefix+key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cached value.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.redis.Del(ctx, m.prefix+key).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
