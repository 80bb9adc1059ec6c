package content_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

func TestParseAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		code     string
		errType  string
		message  string
		notFound bool
	}{
		{
			name:     "odata envelope",
			status:   http.StatusNotFound,
			body:     `{"error":{"code":"NotSpecified","exceptiontype":"ContentNotFoundException","message":{"lang":"en-us","value":"Content not found: /Root/x"}}}`,
			code:     "NotSpecified",
			errType:  "ContentNotFoundException",
			message:  "Content not found: /Root/x",
			notFound: true,
		},
		{
			name:    "plain text",
			status:  http.StatusInternalServerError,
			body:    "boom",
			message: "boom",
		},
		{
			name:    "empty body",
			status:  http.StatusForbidden,
			message: "Forbidden",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			apiErr := content.ParseAPIError(tc.status, []byte(tc.body))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, tc.errType, apiErr.Type)
			assert.Equal(t, tc.message, apiErr.Message)

			wrapped := fmt.Errorf("load failed: %w", apiErr)
			assert.Equal(t, tc.notFound, content.IsNotFound(wrapped))
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, content.IsUnauthorized(&content.APIError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, content.IsForbidden(&content.APIError{StatusCode: http.StatusForbidden}))
	assert.False(t, content.IsForbidden(&content.APIError{StatusCode: http.StatusNotFound}))
	assert.True(t, content.IsNotFound(content.ErrContentNotFound))
	assert.False(t, content.IsValidation(content.ErrContentNotFound))

	validation := &content.ValidationError{Request: "LoadContentRequest", Fields: []string{"ContentID", "Path"}, Err: content.ErrMutuallyExclusive}
	assert.Equal(t, "LoadContentRequest: mutually exclusive fields both set: ContentID, Path", validation.Error())
	assert.True(t, content.IsValidation(fmt.Errorf("wrap: %w", validation)))
}
