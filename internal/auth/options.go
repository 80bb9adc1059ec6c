package auth

import (
	"net/http"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Option configures the resolver, the acquirer and the token store.
type Option func(*settings)

type settings struct {
	logger     content.Logger
	httpClient *http.Client
	retryMax   int
	clock      func() time.Time
	cache      content.Cache
	observer   func(server string, status AuthStatus)
}

func newSettings(opts []Option) *settings {
	s := &settings{
		logger:   content.NoopLogger{},
		retryMax: 1,
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithLogger sets the logger failures are reported to.
func WithLogger(logger content.Logger) Option {
	return func(s *settings) {
		s.logger = content.LoggerOrNoop(logger)
	}
}

// WithHTTPClient sets the client used for discovery and token calls.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithRetryMax sets how often the discovery call is retried.
func WithRetryMax(retryMax int) Option {
	return func(s *settings) {
		s.retryMax = retryMax
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCache sets the backing store of the token store. Entries are JSON
// encoded so any content.Cache backend works.
func WithCache(cache content.Cache) Option {
	return func(s *settings) {
		s.cache = cache
	}
}

// WithObserver registers a callback for every Authenticate outcome.
func WithObserver(observer func(server string, status AuthStatus)) Option {
	return func(s *settings) {
		s.observer = observer
	}
}

func (s *settings) transport(serverURL string) *snhttp.Client {
	opts := []snhttp.Option{
		snhttp.WithLogger(s.logger),
		snhttp.WithRetryConfig(s.retryMax, constants.DefaultRetryWaitMin/10, constants.DefaultRetryWaitMax/10),
		snhttp.WithTimeout(constants.ShortHTTPTimeout),
	}

	if s.httpClient != nil {
		opts = append(opts, snhttp.WithHTTPClient(s.httpClient))
	}

	return snhttp.NewClient(serverURL, nil, opts...)
}

func (s *settings) tokenHTTPClient() *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}

	return &http.Client{Timeout: constants.ShortHTTPTimeout}
}
