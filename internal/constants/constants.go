package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// CLI configuration.
const (
	// ConfigDirName is the directory below $HOME holding the CLI config.
	ConfigDirName = ".sncontent"

	// ConfigFileName is the CLI config file name.
	ConfigFileName = "config.yml"

	// EnvPrefix prefixes environment variables read by the CLI.
	EnvPrefix = "SNCONTENT"

	// KeyringService names the OS keyring entries holding client secrets
	// and API keys.
	KeyringService = "sncontent"

	// MinimumArgumentCount is used by commands taking a key and a value.
	MinimumArgumentCount = 2
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for discovery and token calls.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Authentication cache lifetimes.
const (
	// AuthorityCacheTTL is how long discovered authority info is kept per server.
	AuthorityCacheTTL = 30 * time.Minute

	// TokenCacheTTL is how long an acquired access token is kept per server.
	TokenCacheTTL = 10 * time.Minute

	// TokenExpirationBuffer is subtracted from a token's own expiry.
	TokenExpirationBuffer = 30 * time.Second
)

// Repository cache.
const (
	// RepositoryCacheTTL is the absolute lifetime of a cached repository handle.
	RepositoryCacheTTL = 1 * time.Hour

	// DefaultMaxRepositories bounds the number of cached repository handles.
	DefaultMaxRepositories = 100

	// DefaultCacheSize is the default byte cache size limit.
	DefaultCacheSize = 1000
)

// Content repository protocol.
const (
	// ODataServicePath is appended to the server URL for every OData call.
	ODataServicePath = "/OData.svc"

	// RootPath is the path of the repository root.
	RootPath = "/Root"

	// BinaryHandlerPath serves binary properties of content items.
	BinaryHandlerPath = "/binaryhandler.ashx"

	// AuthorityDiscoveryAction is the root action advertising the authority.
	AuthorityDiscoveryAction = "GetClientRequestParameters"

	// AuthorityClientType is the fixed clientType sent to the discovery action.
	AuthorityClientType = "client"

	// TokenScope is the scope requested in the client credentials grant.
	TokenScope = "sensenet"

	// UploadActionName is the fixed operation used by upload requests.
	UploadActionName = "Upload"

	// DefaultBinaryPropertyName is the field that holds file content.
	DefaultBinaryPropertyName = "Binary"

	// DefaultUploadChunkSize is the chunk size used by chunked uploads (10MB).
	DefaultUploadChunkSize = 10 * 1024 * 1024

	// APIKeyHeader carries a static API key when one is configured.
	APIKeyHeader = "apikey"

	// RequestIDHeader carries the per-call correlation id.
	RequestIDHeader = "X-Request-ID"

	// UploadIDHeader is the same on every request of one upload.
	UploadIDHeader = "X-Upload-ID"
)

// Pagination.
const (
	// DefaultPageSize is the page size used when iterating collections.
	DefaultPageSize = 100
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StringTruncationLength is the default length for truncating strings.
	StringTruncationLength = 80
)
