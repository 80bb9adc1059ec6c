package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix prefixes every key written by RedisCache.
const DefaultRedisKeyPrefix = "sncontent:cache:"

// RedisCacheConfig configures the Redis cache.
type RedisCacheConfig struct {
	// Addr is the host:port of the Redis server. Ignored when Client is set.
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
	// KeyPrefix defaults to DefaultRedisKeyPrefix.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	// Client is an existing client to reuse.
	Client *redis.Client `mapstructure:"-" yaml:"-"`
}

// RedisCache stores entries in Redis. Entry expiry is mirrored onto the
// key's TTL.
type RedisCache struct {
	client    *redis.Client
	ownClient bool
	keyPrefix string
	clock     func() time.Time
}

// NewRedisCache creates a Redis cache.
func NewRedisCache(config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil || (config.Client == nil && config.Addr == "") {
		return nil, ErrRedisConfigRequired
	}

	client := config.Client
	ownClient := false

	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
		ownClient = true
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	return &RedisCache{
		client:    client,
		ownClient: ownClient,
		keyPrefix: prefix,
		clock:     time.Now,
	}, nil
}

// Get returns the entry stored for key.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	if entry.ExpiredAt(c.clock()) {
		c.client.Del(ctx, c.keyPrefix+key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores entry under key.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = entry.ExpiresAt.Sub(c.clock())
		if ttl <= 0 {
			return c.Delete(ctx, key)
		}
	}

	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Has reports whether a live entry is stored for key.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the client when the cache created it.
func (c *RedisCache) Close() error {
	if !c.ownClient {
		return nil
	}

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
