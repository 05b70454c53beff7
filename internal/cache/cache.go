// Package cache is a thin JSON cache over Redis, used to keep the product
// list warm between mutations. A nil *Cache is valid and no-ops, so the
// service runs fine without Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect initialises the Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

// Get retrieves a cached value by key and unmarshals into dest.
// Returns true on a cache hit, false on miss or error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}

	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores value under key for the configured TTL. Best effort.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, data, c.ttl).Err()
}

// Del drops a key. Every product mutation invalidates the list this way.
func (c *Cache) Del(ctx context.Context, key string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, key).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
