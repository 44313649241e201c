// Package rediscache provides a Redis-backed metadata.ResultCache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-metadata"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection and cache behaviour settings.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is prepended to every cache key.
	Prefix string
	// DefaultTTL is used when the caller passes a zero TTL.
	DefaultTTL time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Addr:       "localhost:6379",
		Prefix:     "metadata:",
		DefaultTTL: 5 * time.Minute,
	}
}

// Cache implements metadata.ResultCache over Redis. Only keyed results are
// cached; whole-strand results carry a live strand view and never reach the
// cache because strand queries have no key TTL.
type Cache struct {
	client *redis.Client
	config Config
}

// New connects to Redis and verifies the connection.
func New(config Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rediscache: ping: %w", err)
	}

	return NewWithClient(client, config), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, config Config) *Cache {
	return &Cache{client: client, config: config}
}

// cachedResult is the stored projection of a result. Value types survive a
// JSON round trip per encoding/json rules (numbers come back as float64).
type cachedResult struct {
	Kind   metadata.QueryKind `json:"kind"`
	Value  any                `json:"value,omitempty"`
	Values []any              `json:"values,omitempty"`
	Exists bool               `json:"exists,omitempty"`
	Count  int                `json:"count,omitempty"`
	Key    metadata.Key       `json:"key,omitempty"`
	Entry  *metadata.Entry    `json:"entry,omitempty"`
}

// Fetch implements metadata.ResultCache.
func (c *Cache) Fetch(ctx context.Context, key string) (metadata.Result, error) {
	payload, err := c.client.Get(ctx, c.config.Prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return metadata.Result{}, metadata.ErrCacheMiss
		}
		return metadata.Result{}, fmt.Errorf("rediscache: fetch %q: %w", key, err)
	}

	var stored cachedResult
	if err := json.Unmarshal(payload, &stored); err != nil {
		return metadata.Result{}, fmt.Errorf("rediscache: decode %q: %w", key, err)
	}
	return metadata.Result{
		Kind:   stored.Kind,
		Value:  stored.Value,
		Values: stored.Values,
		Exists: stored.Exists,
		Count:  stored.Count,
		Key:    stored.Key,
		Entry:  stored.Entry,
	}, nil
}

// Store implements metadata.ResultCache.
func (c *Cache) Store(ctx context.Context, key string, result metadata.Result, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	payload, err := json.Marshal(cachedResult{
		Kind:   result.Kind,
		Value:  result.Value,
		Values: result.Values,
		Exists: result.Exists,
		Count:  result.Count,
		Key:    result.Key,
		Entry:  result.Entry,
	})
	if err != nil {
		return fmt.Errorf("rediscache: encode %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.config.Prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: store %q: %w", key, err)
	}
	return nil
}

// Invalidate removes one cached result.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.config.Prefix+key).Err()
}

// Clear removes every cached result under the configured prefix.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
