package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaguanLabs/mirrorlai"
	"github.com/ZaguanLabs/mirrorlai/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by mirrorlai.
const DefaultKeyPrefix = "mirrorlai:"

const opTimeout = 2 * time.Second

// RedisCache is a Redis-backed translation cache shared by every proxy
// instance. Writes use SETNX so concurrent instances agree on one
// translation per key.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string        // Redis connection URL (e.g., "redis://localhost:6379/0")
	TTL       time.Duration // Entry lifetime (0 = no expiration)
	KeyPrefix string        // Prefix for all keys (default: "mirrorlai:")
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	c := NewRedisCacheFromClient(redis.NewClient(opts), cfg.TTL, cfg.KeyPrefix)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		_ = c.client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return c, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value from Redis. Connection errors are reported as misses.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		logger.Debug("redis get %s: %v", key, err)
		return "", false
	}
	return val, true
}

// Set stores value unless key already exists.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.SetNX(ctx, c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &mirrorlai.CacheError{Message: "set " + key, Cause: err}
	}
	return nil
}

// Snapshot returns every entry under the key prefix, with the prefix removed.
func (c *RedisCache) Snapshot() (map[string]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out := make(map[string]string)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", 500).Result()
		if err != nil {
			return nil, &mirrorlai.CacheError{Message: "scan", Cause: err}
		}
		if len(keys) > 0 {
			values, err := c.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, &mirrorlai.CacheError{Message: "mget", Cause: err}
			}
			for i, v := range values {
				// Keys can expire between SCAN and MGET
				if s, ok := v.(string); ok {
					out[keys[i][len(c.keyPrefix):]] = s
				}
			}
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var (
	_ TranslationCache = (*RedisCache)(nil)
	_ Snapshotter      = (*RedisCache)(nil)
)
