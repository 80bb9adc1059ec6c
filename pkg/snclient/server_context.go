package snclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// TokenSource provides access tokens for a server from client credentials.
// An empty token with a nil error means none could be obtained.
type TokenSource interface {
	GetToken(ctx context.Context, serverURL, clientID, secret string) (string, error)
}

// ServerProvider resolves a repository name and caller token into a server.
type ServerProvider interface {
	GetServer(ctx context.Context, name, accessToken string) (*content.Server, error)
}

// ServerContextFactory turns named repository options into connection
// targets carrying credentials.
type ServerContextFactory struct {
	mu           sync.RWMutex
	repositories map[string]RepositoryOptions
	tokens       TokenSource
	logger       content.Logger
}

// NewServerContextFactory creates a factory that obtains missing tokens
// from tokens.
func NewServerContextFactory(tokens TokenSource, logger content.Logger) *ServerContextFactory {
	return &ServerContextFactory{
		repositories: make(map[string]RepositoryOptions),
		tokens:       tokens,
		logger:       content.LoggerOrNoop(logger),
	}
}

// Register adds or replaces the repository called name.
func (f *ServerContextFactory) Register(name string, options RepositoryOptions) error {
	if name == "" {
		return ErrRepositoryNameRequired
	}

	if options.URL == "" {
		return fmt.Errorf("%w: %s", ErrRepositoryURLRequired, name)
	}

	options.URL = strings.TrimSuffix(options.URL, "/")

	f.mu.Lock()
	f.repositories[name] = options
	f.mu.Unlock()

	return nil
}

// Options returns the options registered under name.
func (f *ServerContextFactory) Options(name string) (RepositoryOptions, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	options, ok := f.repositories[name]

	return options, ok
}

// Names returns the registered repository names in sorted order.
func (f *ServerContextFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.repositories))
	for name := range f.repositories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// GetServer resolves name into a server. Unknown names and repositories
// without a URL give a nil server. A non-empty accessToken is used as is;
// otherwise a token is requested with the registered client credentials,
// and a failed request leaves the server anonymous. Only cancellation is
// returned as an error.
func (f *ServerContextFactory) GetServer(ctx context.Context, name, accessToken string) (*content.Server, error) {
	options, ok := f.Options(name)
	if !ok || options.URL == "" {
		f.logger.Warn("Repository is not configured", map[string]interface{}{
			"repository": name,
		})

		return nil, nil //nolint:nilnil // a missing server is reported by the handle at use
	}

	server := &content.Server{
		Name:      name,
		URL:       options.URL,
		IsTrusted: options.Trusted,
		Authentication: content.ServerAuthentication{
			AccessToken: accessToken,
			APIKey:      options.APIKey,
		},
	}

	if accessToken != "" || f.tokens == nil {
		return server, nil
	}

	token, err := f.tokens.GetToken(ctx, options.URL, options.ClientID, options.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("resolving token for %s: %w", name, err)
	}

	server.Authentication.AccessToken = token

	return server, nil
}
