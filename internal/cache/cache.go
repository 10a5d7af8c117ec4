// Package cache stores ranking, trending and facet results per store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "discovery:"

// Cache is a per-store result cache. A miss is reported as (false, nil).
type Cache interface {
	Get(ctx context.Context, storeID, key string, dst any) (bool, error)
	Set(ctx context.Context, storeID, key string, v any) error
	InvalidateStore(ctx context.Context, storeID string) error
}

// Redis caches JSON-encoded results. Every store has a generation counter
// that is part of each data key, so invalidating a store is a single INCR
// and stale entries simply age out.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func generationKey(storeID string) string {
	return keyPrefix + "gen:" + storeID
}

func (r *Redis) dataKey(ctx context.Context, storeID, key string) (string, error) {
	gen, err := r.client.Get(ctx, generationKey(storeID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis get generation: %w", err)
	}
	return fmt.Sprintf("%s%s:%d:%s", keyPrefix, storeID, gen, key), nil
}

// Get decodes the cached value for key into dst.
func (r *Redis) Get(ctx context.Context, storeID, key string, dst any) (bool, error) {
	k, err := r.dataKey(ctx, storeID, key)
	if err != nil {
		return false, err
	}

	data, err := r.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key for the configured TTL.
func (r *Redis) Set(ctx context.Context, storeID, key string, v any) error {
	k, err := r.dataKey(ctx, storeID, key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	if err := r.client.Set(ctx, k, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateStore bumps the store's generation.
func (r *Redis) InvalidateStore(ctx context.Context, storeID string) error {
	if err := r.client.Incr(ctx, generationKey(storeID)).Err(); err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, string, any) error         { return nil }
func (Noop) InvalidateStore(context.Context, string) error          { return nil }
