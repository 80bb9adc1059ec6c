package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// NewTestRepository creates a repository for baseURL without retries.
func NewTestRepository(baseURL string) *Repository {
	return New(&content.Server{Name: "test", URL: baseURL},
		WithHTTPOptions(snhttp.WithRetryConfig(0, time.Millisecond, time.Millisecond)))
}

// TestOperation is one call against a stub server.
type TestOperation[T any] struct {
	Name          string
	Method        string
	ExpectedPath  string
	ExpectedQuery string
	StatusCode    int
	Response      string
	WantErr       bool
	ErrMessage    string
	Check         func(t *testing.T, result T)
}

// RunOperationTests runs each operation against a server that checks the
// request line and answers with the canned response.
func RunOperationTests[T any](t *testing.T, tests []TestOperation[T], call func(context.Context, *Repository) (T, error)) {
	t.Helper()

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.Method, request.Method)
				assert.Equal(t, testCase.ExpectedPath, request.URL.EscapedPath())

				if testCase.ExpectedQuery != "" {
					assert.Equal(t, testCase.ExpectedQuery, request.URL.RawQuery)
				}

				status := testCase.StatusCode
				if status == 0 {
					status = http.StatusOK
				}

				writer.Header().Set("Content-Type", "application/json")
				writer.WriteHeader(status)
				_, _ = writer.Write([]byte(testCase.Response))
			}))
			defer server.Close()

			result, err := call(context.Background(), NewTestRepository(server.URL))

			if testCase.WantErr {
				require.Error(t, err)

				if testCase.ErrMessage != "" {
					assert.Contains(t, err.Error(), testCase.ErrMessage)
				}

				return
			}

			require.NoError(t, err)

			if testCase.Check != nil {
				testCase.Check(t, result)
			}
		})
	}
}
