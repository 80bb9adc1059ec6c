package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fivetwenty-io/sncontent/internal/auth"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Repository cache lookup outcomes.
const (
	RepositoryCacheHit   = "hit"
	RepositoryCacheMiss  = "miss"
	RepositoryCacheBuild = "build"
)

// Collector holds the client metrics. Each Collector registers its own
// metrics, so use one per registry.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authentications *prometheus.CounterVec
	repositoryCache *prometheus.CounterVec
}

// NewCollector registers the client metrics with reg. A nil reg uses the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sncontent_requests_total",
				Help: "Total repository requests by method and status code",
			},
			[]string{"method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sncontent_request_duration_seconds",
				Help:    "Repository request latency by method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		authentications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sncontent_authentications_total",
				Help: "Token store outcomes by status",
			},
			[]string{"status"},
		),
		repositoryCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sncontent_repository_cache_total",
				Help: "Repository cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveAuth counts a token store outcome. Its signature matches
// auth.WithObserver.
func (c *Collector) ObserveAuth(_ string, status auth.AuthStatus) {
	c.authentications.WithLabelValues(string(status)).Inc()
}

// RecordRepositoryCache counts a repository cache lookup.
func (c *Collector) RecordRepositoryCache(result string) {
	c.repositoryCache.WithLabelValues(result).Inc()
}

// RecordRequest counts one completed request. A zero status means the
// request failed before a response arrived.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}

	c.requests.WithLabelValues(method, label).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ResponseInterceptor records every response passing through an
// interceptor chain. The request start time is read from the start_time
// metadata set by content.RequestIDInterceptor.
func (c *Collector) ResponseInterceptor() content.ResponseInterceptor {
	return func(ctx context.Context, req *content.InterceptedRequest, resp *content.InterceptedResponse) error {
		var duration time.Duration
		if start, ok := req.Metadata["start_time"].(time.Time); ok {
			duration = time.Since(start)
		}

		c.RecordRequest(req.Method, resp.StatusCode, duration)

		return nil
	}
}

// Register adds the collector's response interceptor to chain.
func (c *Collector) Register(chain *content.InterceptorChain) {
	chain.AddResponseInterceptor(c.ResponseInterceptor())
}
