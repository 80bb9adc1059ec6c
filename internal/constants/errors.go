package constants

import "errors"

// Configuration errors.
var (
	ErrNoRepositoriesConfigured = errors.New("no repositories configured, use 'sncontent repos add' to add one")
	ErrRepositoryConfigNotFound = errors.New("repository configuration not found")
	ErrRepositoryURLRequired    = errors.New("repository URL is required")
	ErrUnknownConfigKey         = errors.New("unknown configuration key")
)

// Authentication errors.
var (
	ErrSecretNotFound   = errors.New("client secret not found in keyring")
	ErrNoTokenAvailable = errors.New("no access token available for repository")
)

// CLI argument errors.
var (
	ErrInvalidContentTarget = errors.New("content target must be a path starting with /Root or a numeric id")
	ErrInvalidOutputFormat  = errors.New("invalid output format")
	ErrNotRegularFile       = errors.New("path is not a regular file")
)
