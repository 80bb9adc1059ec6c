package snclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sncontent/internal/metrics"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// stubServers resolves every name to a server at example.com. When block
// is set, resolution of blockName waits until it is closed.
type stubServers struct {
	calls     atomic.Int32
	block     chan struct{}
	blockName string
	started   chan struct{}
	startOnce sync.Once
	missing   map[string]bool
	err       error
}

func (s *stubServers) GetServer(ctx context.Context, name, accessToken string) (*content.Server, error) {
	s.calls.Add(1)

	if s.block != nil && name == s.blockName {
		s.startOnce.Do(func() { close(s.started) })
		<-s.block
	}

	if s.err != nil {
		return nil, s.err
	}

	if s.missing[name] {
		return nil, nil
	}

	return &content.Server{
		Name:           name,
		URL:            "https://" + name + ".example.com",
		Authentication: content.ServerAuthentication{AccessToken: accessToken},
	}, nil
}

func newTestCollection(t *testing.T, servers ServerProvider, size int, clock func() time.Time) *RepositoryCollection {
	t.Helper()

	collection, err := newRepositoryCollection(servers, size, clock, nil, nil)
	require.NoError(t, err)

	return collection
}

func TestRepositoryCollection_SingleConstructionPerKey(t *testing.T) {
	t.Parallel()

	servers := &stubServers{block: make(chan struct{}), blockName: "docs", started: make(chan struct{})}
	collection := newTestCollection(t, servers, 10, nil)

	const callers = 20

	results := make([]*Repository, callers)

	var wg sync.WaitGroup

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			repo, err := collection.GetRepository(context.Background(), "docs", "token")
			assert.NoError(t, err)

			results[i] = repo
		}()
	}

	<-servers.started
	close(servers.block)
	wg.Wait()

	assert.Equal(t, int32(1), servers.calls.Load())

	for _, repo := range results {
		assert.Same(t, results[0], repo)
	}
}

func TestRepositoryCollection_CachedLookupDoesNotWaitForGate(t *testing.T) {
	t.Parallel()

	servers := &stubServers{block: make(chan struct{}), blockName: "slow", started: make(chan struct{})}
	collection := newTestCollection(t, servers, 10, nil)

	cached, err := collection.GetRepository(context.Background(), "fast", "")
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, err := collection.GetRepository(context.Background(), "slow", "")
		assert.NoError(t, err)
	}()

	<-servers.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	repo, err := collection.GetRepository(ctx, "fast", "")
	require.NoError(t, err)
	assert.Same(t, cached, repo)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer waitCancel()

	_, err = collection.GetRepository(waitCtx, "other", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(servers.block)
	<-done

	repo, err = collection.GetRepository(context.Background(), "other", "")
	require.NoError(t, err)
	assert.NotNil(t, repo.Server())
}

func TestRepositoryCollection_Expiration(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	servers := &stubServers{}
	collection := newTestCollection(t, servers, 10, clock.Now)
	ctx := context.Background()

	first, err := collection.GetRepository(ctx, "docs", "")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)

	again, err := collection.GetRepository(ctx, "docs", "")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int32(1), servers.calls.Load())

	clock.Advance(time.Minute)

	rebuilt, err := collection.GetRepository(ctx, "docs", "")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, int32(2), servers.calls.Load())
}

func TestRepositoryCollection_KeyIncludesToken(t *testing.T) {
	t.Parallel()

	collection := newTestCollection(t, &stubServers{}, 10, nil)
	ctx := context.Background()

	configured, err := collection.GetRepository(ctx, "docs", "")
	require.NoError(t, err)

	withToken, err := collection.GetRepository(ctx, "docs", "caller-token")
	require.NoError(t, err)

	assert.NotSame(t, configured, withToken)
	assert.Empty(t, configured.Server().Authentication.AccessToken)
	assert.Equal(t, "caller-token", withToken.Server().Authentication.AccessToken)
	assert.Equal(t, 2, collection.Len())

	assert.Equal(t, 2, collection.Forget("docs"))
	assert.Equal(t, 0, collection.Len())
}

func TestRepositoryCollection_ForgetWaitsForBuild(t *testing.T) {
	t.Parallel()

	servers := &stubServers{block: make(chan struct{}), blockName: "docs", started: make(chan struct{})}
	collection := newTestCollection(t, servers, 10, nil)

	built := make(chan struct{})

	go func() {
		defer close(built)

		_, err := collection.GetRepository(context.Background(), "docs", "")
		assert.NoError(t, err)
	}()

	<-servers.started

	removed := make(chan int, 1)

	go func() { removed <- collection.Forget("docs") }()

	select {
	case <-removed:
		t.Fatal("Forget returned while a build held the gate")
	case <-time.After(20 * time.Millisecond):
	}

	close(servers.block)
	<-built

	assert.Equal(t, 1, <-removed)
	assert.Equal(t, 0, collection.Len())
}

func TestRepositoryCollection_NotConfigured(t *testing.T) {
	t.Parallel()

	servers := &stubServers{missing: map[string]bool{"ghost": true}}
	collection := newTestCollection(t, servers, 10, nil)
	ctx := context.Background()

	repo, err := collection.GetRepository(ctx, "ghost", "")
	require.NoError(t, err)
	assert.False(t, repo.IsConfigured())

	_, err = repo.LoadContent(ctx, &content.LoadContentRequest{EntityOptions: content.EntityOptions{Path: "/Root"}})
	require.ErrorIs(t, err, content.ErrRepositoryNotConfigured)

	again, err := collection.GetRepository(ctx, "ghost", "")
	require.NoError(t, err)
	assert.Same(t, repo, again)
	assert.Equal(t, int32(1), servers.calls.Load())
}

func TestRepositoryCollection_FailedResolutionIsNotCached(t *testing.T) {
	t.Parallel()

	servers := &stubServers{err: context.Canceled}
	collection := newTestCollection(t, servers, 10, nil)

	_, err := collection.GetRepository(context.Background(), "docs", "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, collection.Len())

	servers.err = nil

	repo, err := collection.GetRepository(context.Background(), "docs", "")
	require.NoError(t, err)
	assert.True(t, repo.IsConfigured())
	assert.Equal(t, int32(2), servers.calls.Load())
}

func TestRepositoryCollection_CapacityBound(t *testing.T) {
	t.Parallel()

	collection := newTestCollection(t, &stubServers{}, 2, nil)

	for _, name := range []string{"a", "b", "c"} {
		_, err := collection.GetRepository(context.Background(), name, "")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, collection.Len())

	_, err := newRepositoryCollection(&stubServers{}, 0, nil, nil, nil)
	require.Error(t, err)
}

func TestRepositoryCollection_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collection, err := newRepositoryCollection(&stubServers{}, 10, nil, nil, metrics.NewCollector(reg))
	require.NoError(t, err)

	for range 3 {
		_, err := collection.GetRepository(context.Background(), "docs", "")
		require.NoError(t, err)
	}

	counts := repositoryCacheCounts(t, reg)
	assert.InDelta(t, 2, counts[metrics.RepositoryCacheHit], 0)
	assert.InDelta(t, 1, counts[metrics.RepositoryCacheMiss], 0)
	assert.InDelta(t, 1, counts[metrics.RepositoryCacheBuild], 0)
}

func repositoryCacheCounts(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := make(map[string]float64)

	for _, family := range families {
		if family.GetName() != "sncontent_repository_cache_total" {
			continue
		}

		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" {
					counts[label.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}

	return counts
}
