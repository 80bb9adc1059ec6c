package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

const defaultUserAgent = "sncontent-go/1.0"

// TokenManager supplies the bearer token for outgoing requests. An empty
// token sends the request without an Authorization header.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenManager that always returns the same token.
type StaticToken string

// GetToken implements TokenManager.
func (t StaticToken) GetToken(context.Context) (string, error) {
	return string(t), nil
}

// Client is the HTTP transport shared by every repository call.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager TokenManager
	apiKey       string
	userAgent    string
	logger       content.Logger
	debug        bool
	interceptors *content.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger content.Logger) Option {
	return func(c *Client) {
		c.logger = content.LoggerOrNoop(logger)
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets the retry count and backoff bounds.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-attempt timeout of the underlying client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient = httpClient
	}
}

// WithAPIKey sends key in the apikey header when no bearer token is
// available.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithInterceptors hands the client's interceptor chain to configure. The
// request ID interceptor is already registered at that point.
func WithInterceptors(configure func(chain *content.InterceptorChain)) Option {
	return func(c *Client) {
		configure(c.interceptors)
	}
}

// Request is one outbound call. Path is relative to the base URL and may
// already carry a query string; Query is merged into it.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string

	// Body is JSON encoded unless RawBody is set.
	Body any
	// RawBody is sent verbatim with ContentType.
	RawBody     []byte
	ContentType string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    defaultUserAgent,
		logger:       content.NoopLogger{},
		interceptors: content.NewInterceptorChain(),
	}
	client.interceptors.AddRequestInterceptor(content.RequestIDInterceptor())

	for _, opt := range opts {
		opt(client)
	}

	if client.debug {
		client.interceptors.AddRequestInterceptor(content.LoggingInterceptor(client.logger))
		client.interceptors.AddResponseInterceptor(content.LoggingResponseInterceptor(client.logger))
	}

	return client
}

// Do sends req and reads the whole response. Responses with a status of 400
// or above are returned together with a *content.APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpResp, intercepted, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	return resp, c.finish(ctx, intercepted, resp)
}

// Stream sends req and returns the response with its body unread. The
// caller must close the body. Error statuses are read and returned as a
// *content.APIError.
func (c *Client) Stream(ctx context.Context, req *Request) (*http.Response, error) {
	httpResp, intercepted, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < http.StatusBadRequest {
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &content.InterceptedResponse{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
		})

		return httpResp, nil
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, _ := io.ReadAll(httpResp.Body)
	resp := &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: body}

	return nil, c.finish(ctx, intercepted, resp)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// FilePart is the file section of a multipart request.
type FilePart struct {
	FieldName string
	FileName  string
	Data      []byte
}

// PostMultipart sends a multipart/form-data POST with the given form
// fields and an optional file part.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *FilePart, headers map[string]string) (*Response, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", name, err)
		}
	}

	if file != nil {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, fmt.Errorf("creating form file: %w", err)
		}

		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("writing form file: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	return c.Do(ctx, &Request{
		Method:      http.MethodPost,
		Path:        path,
		Headers:     headers,
		RawBody:     buf.Bytes(),
		ContentType: writer.FormDataContentType(),
	})
}

func (c *Client) send(ctx context.Context, req *Request) (*http.Response, *content.InterceptedRequest, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, nil, err
	}

	intercepted := &content.InterceptedRequest{
		Method:  req.Method,
		Path:    req.Path,
		Headers: make(http.Header),
		Body:    body,
	}

	for k, v := range req.Headers {
		intercepted.Headers.Set(k, v)
	}

	if err := c.interceptors.ExecuteRequestInterceptors(ctx, intercepted); err != nil {
		return nil, nil, err
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.buildURL(req), rawBody)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header = intercepted.Headers
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if err := c.authenticate(ctx, httpReq); err != nil {
		return nil, nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &content.InterceptedResponse{Error: err})

		return nil, nil, fmt.Errorf("executing request: %w", err)
	}

	return httpResp, intercepted, nil
}

func (c *Client) finish(ctx context.Context, req *content.InterceptedRequest, resp *Response) error {
	intercepted := &content.InterceptedResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	var apiErr error
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr = content.ParseAPIError(resp.StatusCode, resp.Body)
		intercepted.Error = apiErr
	}

	if err := c.interceptors.ExecuteResponseInterceptors(ctx, req, intercepted); err != nil {
		return err
	}

	return apiErr
}

func (c *Client) authenticate(ctx context.Context, req *retryablehttp.Request) error {
	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("getting access token: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)

			return nil
		}
	}

	if c.apiKey != "" {
		req.Header.Set(constants.APIKeyHeader, c.apiKey)
	}

	return nil
}

func (c *Client) buildURL(req *Request) string {
	full := c.baseURL + req.Path
	if len(req.Query) == 0 {
		return full
	}

	sep := "?"
	if strings.Contains(req.Path, "?") {
		sep = "&"
	}

	return full + sep + req.Query.Encode()
}

func encodeBody(req *Request) ([]byte, string, error) {
	switch {
	case req.RawBody != nil:
		return req.RawBody, req.ContentType, nil
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}

		return data, "application/json", nil
	default:
		return nil, "", nil
	}
}
