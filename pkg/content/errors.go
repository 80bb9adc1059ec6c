package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Validation sentinels. Every request validation failure wraps one of them.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrMutuallyExclusive    = errors.New("mutually exclusive fields both set")
	ErrInvalidEnumValue     = errors.New("unrecognized enum value")
	ErrInvalidPagingValue   = errors.New("non-numeric paging value")
)

// Repository and transport errors.
var (
	ErrRepositoryNotConfigured = errors.New("repository not configured")
	ErrContentNotFound         = errors.New("content not found")
	ErrUnexpectedResponse      = errors.New("unexpected response from server")
	ErrChunkTokenMissing       = errors.New("upload did not return a chunk token")
	ErrNilReader               = errors.New("reader is required")
	ErrInvalidUploadSize       = errors.New("upload size must not be negative")
)

// Cache errors.
var (
	ErrCacheKeyNotFound     = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrRedisConfigRequired  = errors.New("redis configuration required for Redis cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// ValidationError reports an illegal combination of request fields.
type ValidationError struct {
	// Request names the request type that failed validation.
	Request string
	// Fields lists the offending properties.
	Fields []string
	// Err is ErrMissingRequiredField or ErrMutuallyExclusive.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %v", e.Request, e.Err)
	}

	return fmt.Sprintf("%s: %v: %s", e.Request, e.Err, strings.Join(e.Fields, ", "))
}

// Unwrap returns the sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func missing(request string, fields ...string) error {
	return &ValidationError{Request: request, Fields: fields, Err: ErrMissingRequiredField}
}

func exclusive(request string, fields ...string) error {
	return &ValidationError{Request: request, Fields: fields, Err: ErrMutuallyExclusive}
}

// ParameterError reports a well-known parameter whose value cannot be parsed.
type ParameterError struct {
	Key   string
	Value string
	Err   error
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s: %v", e.Value, e.Key, e.Err)
}

// Unwrap returns the sentinel.
func (e *ParameterError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a request validation or parameter
// parsing failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}

	var pe *ParameterError

	return errors.As(err, &pe)
}

// APIError is an error returned by the content repository.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Type       string `json:"exceptiontype,omitempty"`
	Message    string `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (status: %d)", e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

// ParseAPIError builds an APIError from an OData error envelope. Bodies that
// are not an envelope keep the raw text as the message.
func ParseAPIError(statusCode int, data []byte) *APIError {
	var envelope struct {
		Error struct {
			Code          string `json:"code"`
			ExceptionType string `json:"exceptiontype"`
			Message       struct {
				Value string `json:"value"`
			} `json:"message"`
		} `json:"error"`
	}

	apiErr := &APIError{StatusCode: statusCode}

	if err := json.Unmarshal(data, &envelope); err == nil && (envelope.Error.Code != "" || envelope.Error.Message.Value != "") {
		apiErr.Code = envelope.Error.Code
		apiErr.Type = envelope.Error.ExceptionType
		apiErr.Message = envelope.Error.Message.Value

		return apiErr
	}

	apiErr.Message = string(data)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}

	return apiErr
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrContentNotFound) {
		return true
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}

	return false
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}

	return false
}
