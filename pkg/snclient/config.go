package snclient

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired          = errors.New("config is required")
	ErrRepositoryNameRequired  = errors.New("repository name is required")
	ErrRepositoryURLRequired   = constants.ErrRepositoryURLRequired
	ErrRepositoryNotRegistered = errors.New("repository not registered")
)

// DefaultRepositoryName is the name the single-endpoint constructors
// register their repository under.
const DefaultRepositoryName = "default"

// RepositoryOptions describes one named content repository.
type RepositoryOptions struct {
	// URL: base URL of the repository (e.g., "https://example.sensenet.cloud").
	// A repository with an empty URL resolves to no server.
	URL string `mapstructure:"url" yaml:"url"`
	// ClientID: OAuth2 client id for the client credentials grant. The
	// authority advertised by the server may override it.
	ClientID string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	// ClientSecret: OAuth2 client secret used with ClientID.
	ClientSecret string `mapstructure:"-" yaml:"-"`
	// APIKey: sent in the apikey header when no access token is available.
	APIKey string `mapstructure:"-" yaml:"-"`
	// Trusted marks a server whose certificate and identity the caller
	// vouches for. It is carried on the resolved server.
	Trusted bool `mapstructure:"trusted" yaml:"trusted,omitempty"`
}

// Config holds the settings of a Client.
//
// # Repositories
//
// Repositories are registered by name. A caller asks for a repository by
// name and, optionally, an access token it already holds. Without a token
// the client discovers the server's authority and runs the client
// credentials grant with the registered ClientID and ClientSecret.
//
// # Caching
//
// Authority info and tokens are cached in the backend described by Cache
// (in-memory by default, NATS KV or Redis when configured). Repository
// handles are cached in memory for one hour, at most MaxRepositories of
// them.
type Config struct {
	// Repositories: named repositories known at construction time. More can
	// be added later with Client.Register.
	Repositories map[string]RepositoryOptions

	// MaxRepositories bounds the repository handle cache. If 0,
	// DefaultMaxRepositories is used.
	MaxRepositories int

	// HTTPTimeout: per-attempt HTTP timeout for repository calls. Most calls
	// should rely on context deadlines instead.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures (>=500, 429,
	// and connection errors). If 0, the transport default is used.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// RateLimit: requests per second across all repositories. 0 disables it.
	RateLimit int

	// Debug: enables request/response logging through Logger.
	Debug bool
	// Logger: optional structured logger shared by every layer.
	Logger content.Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
	// Headers: extra headers sent with every repository request.
	Headers map[string]string

	// Cache: backend for the authority and token cache. Nil means an
	// in-memory cache.
	Cache *content.CacheConfig
	// Metrics: registerer for the client's Prometheus metrics. Nil disables
	// metrics.
	Metrics prometheus.Registerer
}

// Option configures the parts of a Client that are not plain settings.
type Option func(*clientOptions)

type clientOptions struct {
	clock       func() time.Time
	tokenSource TokenSource
}

// WithClock replaces the time source used for cache expiry.
func WithClock(clock func() time.Time) Option {
	return func(o *clientOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTokenSource replaces the token store used when a caller supplies no
// access token.
func WithTokenSource(source TokenSource) Option {
	return func(o *clientOptions) {
		o.tokenSource = source
	}
}

func (c *Config) maxRepositories() int {
	if c.MaxRepositories > 0 {
		return c.MaxRepositories
	}

	return constants.DefaultMaxRepositories
}
