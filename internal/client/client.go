package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Repository is a handle bound to one resolved server and credential. A
// Repository built for a nil server is valid but every operation fails
// with content.ErrRepositoryNotConfigured.
type Repository struct {
	server     *content.Server
	httpClient *snhttp.Client
	logger     content.Logger
}

// Option configures a Repository.
type Option func(*repositoryOptions)

type repositoryOptions struct {
	logger      content.Logger
	httpOptions []snhttp.Option
}

// WithLogger sets the logger of the repository and its transport.
func WithLogger(logger content.Logger) Option {
	return func(o *repositoryOptions) {
		o.logger = content.LoggerOrNoop(logger)
	}
}

// WithHTTPOptions passes options to the underlying transport.
func WithHTTPOptions(opts ...snhttp.Option) Option {
	return func(o *repositoryOptions) {
		o.httpOptions = append(o.httpOptions, opts...)
	}
}

// New creates a repository handle for server.
func New(server *content.Server, opts ...Option) *Repository {
	options := &repositoryOptions{logger: content.NoopLogger{}}
	for _, opt := range opts {
		opt(options)
	}

	repo := &Repository{server: server, logger: options.logger}
	if server == nil {
		return repo
	}

	httpOpts := append([]snhttp.Option{snhttp.WithLogger(options.logger)}, options.httpOptions...)
	if server.Authentication.APIKey != "" {
		httpOpts = append(httpOpts, snhttp.WithAPIKey(server.Authentication.APIKey))
	}

	repo.httpClient = snhttp.NewClient(server.URL, snhttp.StaticToken(server.Authentication.AccessToken), httpOpts...)

	return repo
}

// Server returns the server the handle is bound to, or nil.
func (r *Repository) Server() *content.Server {
	return r.server
}

// IsConfigured reports whether the handle has a server.
func (r *Repository) IsConfigured() bool {
	return r.server != nil
}

func (r *Repository) render(req content.Request) (*content.ODataRequest, error) {
	if r.server == nil {
		return nil, content.ErrRepositoryNotConfigured
	}

	return req.ToODataRequest(r.server.URL)
}

func (r *Repository) send(ctx context.Context, method string, req *content.ODataRequest) (*snhttp.Response, error) {
	path, err := req.RelativeURL()
	if err != nil {
		return nil, err
	}

	return r.httpClient.Do(ctx, &snhttp.Request{Method: method, Path: path, Body: req.PostData})
}

// unwrap returns the payload of an OData verbose envelope {"d": ...}.
// Bodies without an envelope are returned unchanged.
func unwrap(body []byte) json.RawMessage {
	var envelope struct {
		D json.RawMessage `json:"d"`
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &envelope) == nil && len(envelope.D) > 0 {
		return envelope.D
	}

	return trimmed
}

func decodeEntity(body []byte) (content.Content, error) {
	var item content.Content
	if err := json.Unmarshal(unwrap(body), &item); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}

	if item == nil {
		return nil, content.ErrUnexpectedResponse
	}

	return item, nil
}

func decodeList(body []byte) (*content.ContentList, error) {
	var page struct {
		Count *int              `json:"__count"`
		Items []content.Content `json:"results"`
	}

	if err := json.Unmarshal(unwrap(body), &page); err != nil {
		return nil, fmt.Errorf("parsing content list: %w", err)
	}

	list := &content.ContentList{Items: page.Items, Count: len(page.Items)}
	if page.Count != nil {
		list.Count = *page.Count
	}

	return list, nil
}

func methodFor(payload any) string {
	if payload == nil {
		return http.MethodGet
	}

	return http.MethodPost
}
