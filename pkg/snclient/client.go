package snclient

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/auth"
	"github.com/fivetwenty-io/sncontent/internal/client"
	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/internal/metrics"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// AuthResult reports the outcome of a token lookup.
type AuthResult = auth.AuthResult

// Token lookup outcomes.
const (
	AuthStatusCached        = auth.AuthStatusCached
	AuthStatusAcquired      = auth.AuthStatusAcquired
	AuthStatusNotConfigured = auth.AuthStatusNotConfigured
	AuthStatusFailed        = auth.AuthStatusFailed
)

// Client resolves named repositories into ready-to-use handles.
type Client struct {
	servers      *ServerContextFactory
	repositories *RepositoryCollection
	tokens       *auth.ServerTokenStore
	logger       content.Logger
}

// New creates a client from config.
func New(ctx context.Context, config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	options := &clientOptions{clock: time.Now}
	for _, opt := range opts {
		opt(options)
	}

	logger := content.LoggerOrNoop(config.Logger)

	var collector *metrics.Collector
	if config.Metrics != nil {
		collector = metrics.NewCollector(config.Metrics)
	}

	var tokenStore *auth.ServerTokenStore

	tokens := options.tokenSource
	if tokens == nil {
		store, err := newTokenStore(ctx, config, options, logger, collector)
		if err != nil {
			return nil, err
		}

		tokenStore = store
		tokens = store
	}

	servers := NewServerContextFactory(tokens, logger)
	for name, repo := range config.Repositories {
		if err := servers.Register(name, repo); err != nil {
			return nil, err
		}
	}

	repositories, err := newRepositoryCollection(servers, config.maxRepositories(), options.clock, logger, collector,
		client.WithLogger(logger),
		client.WithHTTPOptions(transportOptions(config, collector)...))
	if err != nil {
		return nil, err
	}

	return &Client{
		servers:      servers,
		repositories: repositories,
		tokens:       tokenStore,
		logger:       logger,
	}, nil
}

func newTokenStore(ctx context.Context, config *Config, options *clientOptions, logger content.Logger, collector *metrics.Collector) (*auth.ServerTokenStore, error) {
	authOpts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithClock(options.clock),
	}

	if config.Cache != nil {
		backend, err := content.NewCacheFromConfig(ctx, config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}

		authOpts = append(authOpts, auth.WithCache(backend))
	}

	if collector != nil {
		authOpts = append(authOpts, auth.WithObserver(collector.ObserveAuth))
	}

	return auth.NewServerTokenStore(nil, nil, authOpts...), nil
}

func transportOptions(config *Config, collector *metrics.Collector) []snhttp.Option {
	opts := []snhttp.Option{snhttp.WithDebug(config.Debug)}

	if config.RetryMax > 0 {
		opts = append(opts, snhttp.WithRetryConfig(config.RetryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, snhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.UserAgent != "" {
		opts = append(opts, snhttp.WithUserAgent(config.UserAgent))
	}

	var limiter content.RequestInterceptor
	if config.RateLimit > 0 {
		limiter = content.RateLimitInterceptor(config.RateLimit)
	}

	if limiter != nil || collector != nil || len(config.Headers) > 0 {
		opts = append(opts, snhttp.WithInterceptors(func(chain *content.InterceptorChain) {
			if len(config.Headers) > 0 {
				chain.AddRequestInterceptor(content.HeaderInterceptor(config.Headers))
			}

			if limiter != nil {
				chain.AddRequestInterceptor(limiter)
			}

			if collector != nil {
				collector.Register(chain)
			}
		}))
	}

	return opts
}

// Register adds or replaces a named repository. Handles already cached for
// name are dropped.
func (c *Client) Register(name string, options RepositoryOptions) error {
	if err := c.servers.Register(name, options); err != nil {
		return err
	}

	c.repositories.Forget(name)

	return nil
}

// GetRepository returns the cached handle for name and accessToken. See
// RepositoryCollection.GetRepository.
func (c *Client) GetRepository(ctx context.Context, name, accessToken string) (*Repository, error) {
	return c.repositories.GetRepository(ctx, name, accessToken)
}

// Servers returns the server context factory.
func (c *Client) Servers() *ServerContextFactory {
	return c.servers
}

// Repositories returns the repository handle cache.
func (c *Client) Repositories() *RepositoryCollection {
	return c.repositories
}

// Authenticate reports how a token for the named repository was obtained.
// It returns nil when the client was built with a custom token source.
func (c *Client) Authenticate(ctx context.Context, name string) (*AuthResult, error) {
	if c.tokens == nil {
		return nil, nil //nolint:nilnil // no token store to ask
	}

	options, ok := c.servers.Options(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryNotRegistered, name)
	}

	return c.tokens.Authenticate(ctx, options.URL, options.ClientID, options.ClientSecret)
}

// NewWithEndpoint creates a client with one anonymous repository.
func NewWithEndpoint(ctx context.Context, endpoint string) (*Client, error) {
	return New(ctx, &Config{
		Repositories: map[string]RepositoryOptions{DefaultRepositoryName: {URL: endpoint}},
	})
}

// NewWithAPIKey creates a client with one repository using an API key.
func NewWithAPIKey(ctx context.Context, endpoint, apiKey string) (*Client, error) {
	return New(ctx, &Config{
		Repositories: map[string]RepositoryOptions{DefaultRepositoryName: {URL: endpoint, APIKey: apiKey}},
	})
}

// NewWithClientCredentials creates a client with one repository using the
// OAuth2 client credentials grant.
func NewWithClientCredentials(ctx context.Context, endpoint, clientID, clientSecret string) (*Client, error) {
	return New(ctx, &Config{
		Repositories: map[string]RepositoryOptions{DefaultRepositoryName: {
			URL:          endpoint,
			ClientID:     clientID,
			ClientSecret: clientSecret,
		}},
	})
}
