// Package cache provides the Redis-backed settings cache adapter.
//
// The cache holds read-side copies of equipment listings and the settings
// document. It is an availability optimization, never the source of truth:
// every cached value can be rebuilt from the document store, so cache
// failures degrade to slower reads rather than errors.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkarlsen/equiploan/internal/domain"
	"github.com/mkarlsen/equiploan/internal/platform/config"
	"github.com/mkarlsen/equiploan/internal/ports"
)

// scanBatchSize bounds how many keys one SCAN iteration may return.
const scanBatchSize = 100

// Redis implements ports.Cache on a Redis server.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis cache adapter and verifies connectivity.
func New(cfg config.CacheConfig, logger *slog.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("cache: addr is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to %s: %w", cfg.Addr, err)
	}

	return &Redis{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.DefaultTTL,
		logger: logger.With("component", "cache"),
	}, nil
}

// Close releases the underlying connection pool.
func (c *Redis) Close() error {
	return c.rdb.Close()
}

// key namespaces every entry so several deployments can share one server.
func (c *Redis) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get implements ports.Cache.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: cache key %q", domain.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	return data, nil
}

// Set implements ports.Cache. A ttlSeconds of 0 applies the configured
// default TTL; a negative value stores without expiration.
func (c *Redis) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	ttl := c.ttl
	switch {
	case ttlSeconds > 0:
		ttl = time.Duration(ttlSeconds) * time.Second
	case ttlSeconds < 0:
		ttl = 0
	}

	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Delete implements ports.Cache.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}

// DeletePrefix implements ports.Cache. Uses SCAN rather than KEYS so a
// large invalidation cannot stall the server.
func (c *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := c.key(prefix) + "*"

	iter := c.rdb.Scan(ctx, 0, pattern, scanBatchSize).Iterator()

	batch := make([]string, 0, scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache delete prefix %q: %w", prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan prefix %q: %w", prefix, err)
	}

	if len(batch) > 0 {
		if err := c.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache delete prefix %q: %w", prefix, err)
		}
	}

	c.logger.Debug("cache prefix invalidated", "prefix", prefix)
	return nil
}

// Name implements ports.HealthChecker.
func (c *Redis) Name() string {
	return "settings-cache"
}

// Check implements ports.HealthChecker.
func (c *Redis) Check(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

var (
	_ ports.Cache         = (*Redis)(nil)
	_ ports.HealthChecker = (*Redis)(nil)
)
