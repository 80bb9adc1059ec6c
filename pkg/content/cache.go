package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/cache"
	"github.com/fivetwenty-io/sncontent/internal/constants"
)

// Cache is a byte cache backend shared by the token store and other
// components that cache serialized values.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached value. A zero ExpiresAt never expires.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	ETag      string    `json:"etag,omitempty"`
}

// ExpiredAt reports whether the entry has expired at now.
func (e *CacheEntry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// CacheOptions are applied by a CacheManager.
type CacheOptions struct {
	// DefaultTTL is used when Set is called with a zero TTL.
	DefaultTTL time.Duration
	// KeyPrefix namespaces keys when a backend is shared.
	KeyPrefix string
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		DefaultTTL: constants.TokenCacheTTL,
		Clock:      time.Now,
	}
}

// MemoryCache is an in-process, size-bounded LRU cache. Entries expire at
// their ExpiresAt; an expired entry is reported as a missing key.
type MemoryCache struct {
	items *cache.Cache[string, *CacheEntry]
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// A non-positive size uses the default.
func NewMemoryCache(maxSize int) *MemoryCache {
	return NewMemoryCacheWithClock(maxSize, time.Now)
}

// NewMemoryCacheWithClock is NewMemoryCache with an explicit clock.
func NewMemoryCacheWithClock(maxSize int, clock func() time.Time) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	// cache.New only fails for non-positive sizes.
	items, _ := cache.New[string, *CacheEntry](maxSize, cache.WithClock(clock))

	return &MemoryCache{items: items}
}

// Get returns the live entry stored for key.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, ok := c.items.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	return entry, nil
}

// Set stores entry under key, replacing any previous entry.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.items.SetUntil(key, entry, entry.ExpiresAt)

	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.items.Remove(key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.items.Purge()

	return nil
}

// Has reports whether a live entry is stored for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	return c.items.Has(key)
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	return c.items.Len()
}

// Cleanup removes expired entries.
func (c *MemoryCache) Cleanup() {
	c.items.PurgeExpired()
}

// CacheStats counts cache manager operations.
type CacheStats struct {
	Hits   int64
	Misses int64
	Sets   int64
	Errors int64
}

// GetHitRate returns the ratio of hits to lookups.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheManager stores byte values with a TTL on top of any Cache backend
// and keeps hit and miss statistics.
type CacheManager struct {
	cache   Cache
	options *CacheOptions

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	errs   atomic.Int64
}

// NewCacheManager creates a manager over cache. A nil cache uses a memory
// cache of the default size; nil options use DefaultCacheOptions.
func NewCacheManager(backend Cache, options *CacheOptions) *CacheManager {
	if backend == nil {
		backend = NewMemoryCache(constants.DefaultCacheSize)
	}

	if options == nil {
		options = DefaultCacheOptions()
	}

	if options.Clock == nil {
		options.Clock = time.Now
	}

	return &CacheManager{cache: backend, options: options}
}

// GetCacheKey builds a deterministic key from a method, a path and params.
func (m *CacheManager) GetCacheKey(method, path string, params map[string]string) string {
	key := method + ":" + path
	if len(params) == 0 {
		return key
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+params[name])
	}

	return key + ":" + strings.Join(pairs, "&")
}

// Get returns the live value stored for key.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.cache.Get(ctx, m.options.KeyPrefix+key)
	if err != nil {
		m.misses.Add(1)

		return nil, err
	}

	if entry.ExpiredAt(m.options.Clock()) {
		m.misses.Add(1)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	m.hits.Add(1)

	return entry.Data, nil
}

// Set stores data for ttl. A zero ttl uses the default TTL.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.SetWithETag(ctx, key, data, "", ttl)
}

// SetWithETag stores data together with an entity tag.
func (m *CacheManager) SetWithETag(ctx context.Context, key string, data []byte, etag string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.options.DefaultTTL
	}

	entry := &CacheEntry{
		Data: data,
		ETag: etag,
	}

	if ttl > 0 {
		entry.ExpiresAt = m.options.Clock().Add(ttl)
	}

	if err := m.cache.Set(ctx, m.options.KeyPrefix+key, entry); err != nil {
		m.errs.Add(1)

		return fmt.Errorf("failed to set cache entry: %w", err)
	}

	m.sets.Add(1)

	return nil
}

// Delete removes key.
func (m *CacheManager) Delete(ctx context.Context, key string) error {
	if err := m.cache.Delete(ctx, m.options.KeyPrefix+key); err != nil {
		m.errs.Add(1)

		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Clear removes every entry from the backend.
func (m *CacheManager) Clear(ctx context.Context) error {
	if err := m.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

// GetStats returns a snapshot of the statistics.
func (m *CacheManager) GetStats() *CacheStats {
	return &CacheStats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Sets:   m.sets.Load(),
		Errors: m.errs.Load(),
	}
}
