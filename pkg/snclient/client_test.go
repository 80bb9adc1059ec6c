package snclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sncontent/pkg/content"
	"github.com/fivetwenty-io/sncontent/pkg/snclient"
)

const discoveryPath = "/OData.svc/('Root')/GetClientRequestParameters"

// newRepositoryServer serves an anonymous repository that accepts requests
// carrying either apiKey or bearer.
func newRepositoryServer(t *testing.T, apiKey, bearer string, discoveries *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case discoveryPath:
			discoveries.Add(1)
			_, _ = w.Write([]byte(`{}`))
		case "/OData.svc/Root/Content('Docs')":
			authorized := (apiKey != "" && r.Header.Get("apikey") == apiKey) ||
				(bearer != "" && r.Header.Get("Authorization") == "Bearer "+bearer)
			if !authorized {
				w.WriteHeader(http.StatusUnauthorized)

				return
			}

			_, _ = w.Write([]byte(`{"d":{"Id":7,"Name":"Docs"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

var docsRequest = &content.LoadContentRequest{
	EntityOptions: content.EntityOptions{Path: "/Root/Content/Docs"},
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := snclient.New(context.Background(), nil)
	require.ErrorIs(t, err, snclient.ErrConfigRequired)

	_, err = snclient.New(context.Background(), &snclient.Config{
		Repositories: map[string]snclient.RepositoryOptions{"docs": {}},
	})
	require.ErrorIs(t, err, snclient.ErrRepositoryURLRequired)

	_, err = snclient.New(context.Background(), &snclient.Config{
		Cache: &content.CacheConfig{Type: "bogus"},
	})
	require.ErrorIs(t, err, content.ErrUnsupportedCacheType)
}

func TestNewWithAPIKey(t *testing.T) {
	t.Parallel()

	var discoveries atomic.Int32

	server := newRepositoryServer(t, "secret-key", "", &discoveries)
	ctx := context.Background()

	cli, err := snclient.NewWithAPIKey(ctx, server.URL, "secret-key")
	require.NoError(t, err)

	repo, err := cli.GetRepository(ctx, snclient.DefaultRepositoryName, "")
	require.NoError(t, err)

	item, err := repo.LoadContent(ctx, docsRequest)
	require.NoError(t, err)
	assert.Equal(t, 7, item.ID())
	assert.Equal(t, int32(1), discoveries.Load())

	result, err := cli.Authenticate(ctx, snclient.DefaultRepositoryName)
	require.NoError(t, err)
	assert.Equal(t, snclient.AuthStatusNotConfigured, result.Status)
	assert.Empty(t, result.Token)

	_, err = cli.Authenticate(ctx, "unknown")
	require.ErrorIs(t, err, snclient.ErrRepositoryNotRegistered)
}

func TestClient_CallerToken(t *testing.T) {
	t.Parallel()

	var discoveries atomic.Int32

	server := newRepositoryServer(t, "", "caller-token", &discoveries)
	ctx := context.Background()

	cli, err := snclient.NewWithEndpoint(ctx, server.URL)
	require.NoError(t, err)

	repo, err := cli.GetRepository(ctx, snclient.DefaultRepositoryName, "caller-token")
	require.NoError(t, err)

	_, err = repo.LoadContent(ctx, docsRequest)
	require.NoError(t, err)
	assert.Zero(t, discoveries.Load())

	anonymous, err := cli.GetRepository(ctx, snclient.DefaultRepositoryName, "")
	require.NoError(t, err)

	_, err = anonymous.LoadContent(ctx, docsRequest)
	require.Error(t, err)
	assert.True(t, content.IsUnauthorized(err))
}

func TestClient_UnknownRepository(t *testing.T) {
	t.Parallel()

	cli, err := snclient.New(context.Background(), &snclient.Config{})
	require.NoError(t, err)

	repo, err := cli.GetRepository(context.Background(), "nowhere", "")
	require.NoError(t, err)

	_, err = repo.LoadContent(context.Background(), docsRequest)
	require.ErrorIs(t, err, content.ErrRepositoryNotConfigured)
}

func TestClient_RegisterDropsCachedHandles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cli, err := snclient.NewWithEndpoint(ctx, "https://old.example.com")
	require.NoError(t, err)

	before, err := cli.GetRepository(ctx, snclient.DefaultRepositoryName, "t")
	require.NoError(t, err)

	require.NoError(t, cli.Register(snclient.DefaultRepositoryName, snclient.RepositoryOptions{URL: "https://new.example.com"}))

	after, err := cli.GetRepository(ctx, snclient.DefaultRepositoryName, "t")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, "https://new.example.com", after.Server().URL)
}

type staticTokens string

func (s staticTokens) GetToken(context.Context, string, string, string) (string, error) {
	return string(s), nil
}

func TestClient_MetricsAndTokenSource(t *testing.T) {
	t.Parallel()

	var discoveries atomic.Int32

	server := newRepositoryServer(t, "", "from-source", &discoveries)
	reg := prometheus.NewRegistry()
	ctx := context.Background()

	cli, err := snclient.New(ctx, &snclient.Config{
		Repositories: map[string]snclient.RepositoryOptions{"docs": {URL: server.URL}},
		Metrics:      reg,
		RateLimit:    100,
	}, snclient.WithTokenSource(staticTokens("from-source")))
	require.NoError(t, err)

	repo, err := cli.GetRepository(ctx, "docs", "")
	require.NoError(t, err)

	_, err = repo.LoadContent(ctx, docsRequest)
	require.NoError(t, err)
	assert.Zero(t, discoveries.Load())

	result, err := cli.Authenticate(ctx, "docs")
	require.NoError(t, err)
	assert.Nil(t, result)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}

	assert.Contains(t, names, "sncontent_requests_total")
	assert.Contains(t, names, "sncontent_repository_cache_total")
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tenant-a", r.Header.Get("X-Tenant"))
		_, _ = w.Write([]byte(`{"d":{"Id":7}}`))
	}))
	t.Cleanup(server.Close)

	ctx := context.Background()

	cli, err := snclient.New(ctx, &snclient.Config{
		Repositories: map[string]snclient.RepositoryOptions{"docs": {URL: server.URL}},
		Headers:      map[string]string{"X-Tenant": "tenant-a"},
	})
	require.NoError(t, err)

	repo, err := cli.GetRepository(ctx, "docs", "caller-token")
	require.NoError(t, err)

	item, err := repo.LoadContent(ctx, docsRequest)
	require.NoError(t, err)
	assert.Equal(t, 7, item.ID())
}
