// Package cache holds whole-collection snapshots in Redis so several site
// processes share one fetch per collection per TTL window.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces snapshot keys.
const DefaultPrefix = "dewsite:collection:"

// RedisCache implements content.SnapshotCache using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{client: client, prefix: DefaultPrefix}, nil
}

// NewRedisCacheWithClient creates a cache from an existing Redis client.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: DefaultPrefix}
}

func (c *RedisCache) key(collection string) string {
	return c.prefix + collection
}

// Load returns the stored snapshot. A miss is (nil, false, nil).
func (c *RedisCache) Load(ctx context.Context, collection string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, c.key(collection)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", collection, err)
	}
	return b, true, nil
}

// Save stores a snapshot. A non-positive ttl stores without expiry.
func (c *RedisCache) Save(ctx context.Context, collection string, payload []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(collection), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", collection, err)
	}
	return nil
}

// Invalidate drops the snapshots of the named collections, or of every
// collection when none are named. Returns the number of keys removed.
func (c *RedisCache) Invalidate(ctx context.Context, collections ...string) (int, error) {
	var keys []string
	if len(collections) == 0 {
		iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return 0, fmt.Errorf("scan snapshots: %w", err)
		}
	} else {
		for _, name := range collections {
			keys = append(keys, c.key(name))
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("invalidate snapshots: %w", err)
	}
	return int(n), nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
