package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNew_InvalidSize(t *testing.T) {
	t.Parallel()

	_, err := cache.New[string, int](0)
	require.ErrorIs(t, err, cache.ErrInvalidSize)
}

func TestCache_SetAndGet(t *testing.T) {
	t.Parallel()

	c, err := cache.New[string, int](10)
	require.NoError(t, err)

	c.Set("a", 1)

	value, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_AbsoluteExpiration(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c, err := cache.New[string, string](10, cache.WithClock(clock.Now), cache.WithTTL(time.Hour))
	require.NoError(t, err)

	c.Set("repo", "handle")

	clock.Advance(59 * time.Minute)
	value, ok := c.Get("repo")
	require.True(t, ok)
	assert.Equal(t, "handle", value)

	// Reads do not extend the lifetime.
	clock.Advance(time.Minute)
	_, ok = c.Get("repo")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SetWithTTLOverridesDefault(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c, err := cache.New[string, int](10, cache.WithClock(clock.Now), cache.WithTTL(time.Hour))
	require.NoError(t, err)

	c.SetWithTTL("short", 1, time.Minute)
	c.Set("long", 2)

	clock.Advance(2 * time.Minute)

	assert.False(t, c.Has("short"))
	assert.True(t, c.Has("long"))
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c, err := cache.New[string, int](10, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.Set("k", 1)
	clock.Advance(24 * 365 * time.Hour)

	assert.True(t, c.Has("k"))
}

func TestCache_CapacityBound(t *testing.T) {
	t.Parallel()

	c, err := cache.New[int, int](2)
	require.NoError(t, err)

	for i := range 5 {
		c.Set(i, i)
	}

	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.Keys(), 2)
}

func TestCache_ReplaceWholesale(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c, err := cache.New[string, int](10, cache.WithClock(clock.Now), cache.WithTTL(10*time.Minute))
	require.NoError(t, err)

	c.Set("k", 1)
	clock.Advance(9 * time.Minute)
	c.Set("k", 2)
	clock.Advance(9 * time.Minute)

	value, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, value)
}

func TestCache_RemoveAndPurge(t *testing.T) {
	t.Parallel()

	c, err := cache.New[string, int](10)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.False(t, c.Has("a"))

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_PurgeExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c, err := cache.New[string, int](10, cache.WithClock(clock.Now))
	require.NoError(t, err)

	c.SetWithTTL("a", 1, time.Minute)
	c.SetWithTTL("b", 2, time.Hour)
	c.Set("c", 3)

	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.PurgeExpired())
	assert.ElementsMatch(t, []string{"b", "c"}, c.Keys())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c, err := cache.New[int, int](50, cache.WithTTL(time.Hour))
	require.NoError(t, err)

	var wg sync.WaitGroup

	for worker := range 8 {
		wg.Add(1)

		go func(worker int) {
			defer wg.Done()

			for i := range 200 {
				c.Set(i%100, worker)
				c.Get(i % 100)
			}
		}(worker)
	}

	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
