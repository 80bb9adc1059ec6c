package snclient

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fivetwenty-io/sncontent/internal/cache"
	"github.com/fivetwenty-io/sncontent/internal/client"
	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/internal/metrics"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Repository is a handle bound to one resolved server and credential.
type Repository = client.Repository

// BinaryStream is an open binary property download.
type BinaryStream = client.BinaryStream

type repositoryKey struct {
	name  string
	token string
}

// RepositoryCollection caches repository handles per (name, access token).
// Construction is serialized by one gate for the whole collection; lookups
// of cached handles never wait for it.
type RepositoryCollection struct {
	servers  ServerProvider
	handles  *cache.Cache[repositoryKey, *Repository]
	gate     *semaphore.Weighted
	repoOpts []client.Option
	metrics  *metrics.Collector
	logger   content.Logger
}

// newRepositoryCollection creates a collection holding at most size handles
// for one hour each.
func newRepositoryCollection(servers ServerProvider, size int, clock func() time.Time, logger content.Logger, collector *metrics.Collector, repoOpts ...client.Option) (*RepositoryCollection, error) {
	cacheOpts := []cache.Option{cache.WithTTL(constants.RepositoryCacheTTL)}
	if clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(clock))
	}

	handles, err := cache.New[repositoryKey, *Repository](size, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating repository cache: %w", err)
	}

	return &RepositoryCollection{
		servers:  servers,
		handles:  handles,
		gate:     semaphore.NewWeighted(1),
		repoOpts: repoOpts,
		metrics:  collector,
		logger:   content.LoggerOrNoop(logger),
	}, nil
}

// GetRepository returns the handle for name and accessToken, building and
// caching it on a miss. An empty accessToken selects the registered
// credentials. A handle for an unconfigured name is cached too; its
// operations fail with content.ErrRepositoryNotConfigured.
func (c *RepositoryCollection) GetRepository(ctx context.Context, name, accessToken string) (*Repository, error) {
	key := repositoryKey{name: name, token: accessToken}

	if repo, ok := c.handles.Get(key); ok {
		c.record(metrics.RepositoryCacheHit)

		return repo, nil
	}

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for repository %s: %w", name, err)
	}
	defer c.gate.Release(1)

	if repo, ok := c.handles.Get(key); ok {
		c.record(metrics.RepositoryCacheHit)

		return repo, nil
	}

	c.record(metrics.RepositoryCacheMiss)

	server, err := c.servers.GetServer(ctx, name, accessToken)
	if err != nil {
		return nil, err
	}

	repo := client.New(server, c.repoOpts...)
	c.handles.Set(key, repo)
	c.record(metrics.RepositoryCacheBuild)

	c.logger.Debug("Repository handle created", map[string]interface{}{
		"repository": name,
		"configured": server != nil,
	})

	return repo, nil
}

// Forget drops every cached handle for name. It waits for a build in
// progress so that a handle resolved from old options is dropped too.
func (c *RepositoryCollection) Forget(name string) int {
	// Acquire cannot fail with a background context.
	_ = c.gate.Acquire(context.Background(), 1)
	defer c.gate.Release(1)

	removed := 0

	for _, key := range c.handles.Keys() {
		if key.name == name && c.handles.Remove(key) {
			removed++
		}
	}

	return removed
}

// Len returns the number of cached handles.
func (c *RepositoryCollection) Len() int {
	return c.handles.Len()
}

func (c *RepositoryCollection) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordRepositoryCache(result)
	}
}
