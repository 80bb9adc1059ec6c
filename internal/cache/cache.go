// Package cache provides a capacity-bounded in-memory cache with an
// absolute expiration per entry. Eviction on overflow is delegated to
// github.com/hashicorp/golang-lru/v2; expired entries are treated as misses
// and dropped lazily on access.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Static errors for err113 compliance.
var (
	ErrInvalidSize = errors.New("cache size must be positive")
)

// Clock returns the current time. Tests replace it to simulate expiry.
type Clock func() time.Time

type options struct {
	clock Clock
	ttl   time.Duration
}

// Option configures a Cache.
type Option func(*options)

// WithClock overrides the time source used for expiry decisions.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTTL sets the default lifetime used by Set. A non-positive TTL means
// entries never expire.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a goroutine-safe map with a maximum entry count and absolute
// per-entry expiration. Entries are replaced wholesale, never mutated.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items *lru.Cache[K, entry[V]]
	clock Clock
	ttl   time.Duration
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int, opts ...Option) (*Cache[K, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	items, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache[K, V]{
		items: items,
		clock: o.clock,
		ttl:   o.ttl,
	}, nil
}

// Get returns the live value for key. Expired entries are removed and
// reported as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	item, ok := c.items.Get(key)
	c.mu.RUnlock()

	var zero V

	if !ok {
		return zero, false
	}

	if c.expired(item) {
		c.mu.Lock()
		// Only drop the entry if nobody replaced it in the meantime.
		if current, still := c.items.Peek(key); still && c.expired(current) {
			c.items.Remove(key)
		}
		c.mu.Unlock()

		return zero, false
	}

	return item.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key, expiring ttl from now.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock().Add(ttl)
	}

	c.SetUntil(key, value, expiresAt)
}

// SetUntil stores value under key with an absolute expiration. A zero
// expiresAt never expires.
func (c *Cache[K, V]) SetUntil(key K, value V, expiresAt time.Time) {
	c.mu.Lock()
	c.items.Add(key, entry[V]{value: value, expiresAt: expiresAt})
	c.mu.Unlock()
}

// Has reports whether key holds a live value.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)

	return ok
}

// Remove deletes key. It reports whether an entry was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.items.Remove(key)
}

// Len returns the number of stored entries, including expired entries that
// have not been dropped yet.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.items.Len()
}

// Keys returns the keys of all live entries, oldest first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, c.items.Len())
	for _, key := range c.items.Keys() {
		if item, ok := c.items.Peek(key); ok && !c.expired(item) {
			keys = append(keys, key)
		}
	}

	return keys
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *Cache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for _, key := range c.items.Keys() {
		if item, ok := c.items.Peek(key); ok && c.expired(item) {
			c.items.Remove(key)

			removed++
		}
	}

	return removed
}

// Purge removes all entries.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	c.items.Purge()
	c.mu.Unlock()
}

func (c *Cache[K, V]) expired(item entry[V]) bool {
	if item.expiresAt.IsZero() {
		return false
	}

	return !c.clock().Before(item.expiresAt)
}
