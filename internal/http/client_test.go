package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

var errTokenUnavailable = errors.New("token unavailable")

// MockTokenManager for testing.
type MockTokenManager struct {
	token string
	err   error
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, m.err
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/OData.svc/Root/Content('Docs')", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			_, err := uuid.Parse(request.Header.Get("X-Request-ID"))
			assert.NoError(t, err)

			_ = json.NewEncoder(writer).Encode(map[string]any{"d": map[string]any{"Id": 12, "Name": "Docs"}})
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, &MockTokenManager{token: "test-token"})

		resp, err := client.Get(context.Background(), "/OData.svc/Root/Content('Docs')", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Contains(t, string(resp.Body), `"Name":"Docs"`)
	})

	t.Run("query string is merged", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/OData.svc/Root", request.URL.Path)
			assert.Equal(t, "$top=2&create=1", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL+"/", nil)

		resp, err := client.Do(context.Background(), &snhttp.Request{
			Method: http.MethodGet,
			Path:   "/OData.svc/Root?$top=2",
			Query:  url.Values{"create": []string{"1"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Folder", body["__ContentType"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil)

		resp, err := client.Post(context.Background(), "/OData.svc/Root/Content", map[string]string{"__ContentType": "Folder"})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"error":{"code":"NotSpecified","message":{"value":"Content not found"}}}`))
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil)

		resp, err := client.Get(context.Background(), "/OData.svc/Root/Missing", nil)
		require.Error(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.True(t, content.IsNotFound(err))

		apiErr := &content.APIError{}
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Content not found", apiErr.Message)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "my-agent", request.Header.Get("User-Agent"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil, snhttp.WithUserAgent("my-agent"))

		resp, err := client.Do(context.Background(), &snhttp.Request{
			Method:  "GET",
			Path:    "/OData.svc/Root",
			Headers: map[string]string{"X-Custom-Header": "custom-value"},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := snhttp.NewClient(server.URL, nil, snhttp.WithLogger(logger), snhttp.WithDebug(true))

		_, err := client.Get(context.Background(), "/OData.svc/Root", nil)
		require.NoError(t, err)

		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "API Request", logger.logs[0]["msg"])
		assert.Equal(t, "API Response", logger.logs[1]["msg"])
	})

	t.Run("token errors abort the request", func(t *testing.T) {
		t.Parallel()

		client := snhttp.NewClient("http://127.0.0.1:1", &MockTokenManager{err: errTokenUnavailable})

		_, err := client.Get(context.Background(), "/OData.svc/Root", nil)
		require.ErrorIs(t, err, errTokenUnavailable)
	})
}

func TestClient_Authentication(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		token         snhttp.TokenManager
		apiKey        string
		authorization string
		apiKeyHeader  string
	}{
		{name: "bearer token", token: snhttp.StaticToken("abc"), apiKey: "key", authorization: "Bearer abc"},
		{name: "api key fallback", token: snhttp.StaticToken(""), apiKey: "key", apiKeyHeader: "key"},
		{name: "anonymous"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, tc.authorization, request.Header.Get("Authorization"))
				assert.Equal(t, tc.apiKeyHeader, request.Header.Get("apikey"))
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := snhttp.NewClient(server.URL, tc.token, snhttp.WithAPIKey(tc.apiKey))

			_, err := client.Get(context.Background(), "/", nil)
			require.NoError(t, err)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*snhttp.Client, context.Context) (*snhttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *snhttp.Client, ctx context.Context) (*snhttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *snhttp.Client, ctx context.Context) (*snhttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *snhttp.Client, ctx context.Context) (*snhttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *snhttp.Client, ctx context.Context) (*snhttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *snhttp.Client, ctx context.Context) (*snhttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := snhttp.NewClient(server.URL, nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

func TestClient_PostMultipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "bytes 0-4/10", request.Header.Get("Content-Range"))
		require.NoError(t, request.ParseMultipartForm(1<<20))
		assert.Equal(t, "File", request.FormValue("ContentType"))

		file, header, err := request.FormFile("files[]")
		require.NoError(t, err)

		defer func() { _ = file.Close() }()

		data, _ := io.ReadAll(file)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, "a.txt", header.Filename)

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := snhttp.NewClient(server.URL, nil)

	_, err := client.PostMultipart(context.Background(), "/OData.svc/Root('Docs')/Upload",
		map[string]string{"ContentType": "File"},
		&snhttp.FilePart{FieldName: "files[]", FileName: "a.txt", Data: []byte("hello")},
		map[string]string{"Content-Range": "bytes 0-4/10"},
	)
	require.NoError(t, err)
}

func TestClient_Stream(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if strings.HasSuffix(request.URL.Path, "missing") {
			writer.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = writer.Write([]byte("binary content"))
	}))
	defer server.Close()

	client := snhttp.NewClient(server.URL, nil)

	resp, err := client.Stream(context.Background(), &snhttp.Request{Method: http.MethodGet, Path: "/binaryhandler.ashx"})
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "binary content", string(data))

	_, err = client.Stream(context.Background(), &snhttp.Request{Method: http.MethodGet, Path: "/missing"})
	require.Error(t, err)
	assert.True(t, content.IsNotFound(err))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil, snhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil, snhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil, snhttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("returns the last response after exhausting retries", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := snhttp.NewClient(server.URL, nil, snhttp.WithRetryConfig(1, time.Millisecond, time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 503, resp.StatusCode)
	})
}

func TestClient_Cancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	defer server.Close()

	client := snhttp.NewClient(server.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/slow", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
