// Package cache provides the shared redis-backed lookup cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docintel/metrics"
)

// Redis is a JSON value cache over one redis database. Worker processes
// share it so decisions like whitelist membership are computed once.
type Redis struct {
	client *redis.Client
	name   string
	logger *zap.SugaredLogger
}

// NewRedis connects to redis and verifies the connection. name labels the
// cache in metrics.
func NewRedis(addr, password string, db int, name string, logger *zap.SugaredLogger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	logger.Infow("Redis cache connected", "addr", addr, "db", db, "cache", name)
	return &Redis{client: client, name: name, logger: logger}, nil
}

// Get loads a cached value into dest, reporting whether the key was present
func (r *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(r.name).Inc()
		return false, nil
	}
	if err != nil {
		metrics.CacheErrors.WithLabelValues(r.name, "get").Inc()
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		metrics.CacheErrors.WithLabelValues(r.name, "get").Inc()
		return false, fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues(r.name).Inc()
	return true, nil
}

// Set stores a value with a TTL
func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(r.name, "set").Inc()
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.client.Close()
}
