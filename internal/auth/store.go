package auth

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// AuthStatus tells how Authenticate arrived at its result.
type AuthStatus string

const (
	// AuthStatusCached means a live cached token was returned.
	AuthStatusCached AuthStatus = "cached"
	// AuthStatusAcquired means a new token was fetched from the authority.
	AuthStatusAcquired AuthStatus = "acquired"
	// AuthStatusNotConfigured means the server advertises no authority.
	AuthStatusNotConfigured AuthStatus = "not_configured"
	// AuthStatusFailed means an authority exists but no token was obtained.
	AuthStatusFailed AuthStatus = "failed"
)

// AuthResult is the outcome of one Authenticate call. Token is empty for
// every status except Cached and Acquired.
type AuthResult struct {
	Token     string
	Status    AuthStatus
	Authority content.AuthorityInfo
}

// AuthorityProvider resolves the authority of a server.
type AuthorityProvider interface {
	GetAuthorityInfo(ctx context.Context, serverURL string) (content.AuthorityInfo, error)
}

// TokenProvider exchanges credentials for a token.
type TokenProvider interface {
	GetTokenFromAuthority(ctx context.Context, info content.AuthorityInfo, secret string) (*content.TokenInfo, error)
}

// ServerTokenStore caches authority info for 30 minutes and access tokens
// for 10 minutes per server URL. Concurrent misses for the same server may
// each perform the round trips; the last write wins.
type ServerTokenStore struct {
	authorities AuthorityProvider
	tokens      TokenProvider
	cache       *content.CacheManager
	settings    *settings
}

// NewServerTokenStore creates a store. Nil providers default to a new
// AuthorityResolver and TokenAcquirer built from opts.
func NewServerTokenStore(authorities AuthorityProvider, tokens TokenProvider, opts ...Option) *ServerTokenStore {
	s := newSettings(opts)

	if authorities == nil {
		authorities = &AuthorityResolver{settings: s}
	}

	if tokens == nil {
		tokens = &TokenAcquirer{settings: s}
	}

	backend := s.cache
	if backend == nil {
		backend = content.NewMemoryCacheWithClock(constants.DefaultCacheSize, s.clock)
	}

	return &ServerTokenStore{
		authorities: authorities,
		tokens:      tokens,
		cache: content.NewCacheManager(backend, &content.CacheOptions{
			DefaultTTL: constants.TokenCacheTTL,
			KeyPrefix:  "auth:",
			Clock:      s.clock,
		}),
		settings: s,
	}
}

// GetToken returns an access token for serverURL, or the empty string when
// none is available.
func (s *ServerTokenStore) GetToken(ctx context.Context, serverURL, clientID, secret string) (string, error) {
	result, err := s.Authenticate(ctx, serverURL, clientID, secret)
	if err != nil {
		return "", err
	}

	return result.Token, nil
}

// Authenticate returns a cached token or obtains a new one. The returned
// error is non-nil only when ctx is done; a cancelled attempt writes nothing.
func (s *ServerTokenStore) Authenticate(ctx context.Context, serverURL, clientID, secret string) (*AuthResult, error) {
	serverURL = strings.TrimSuffix(serverURL, "/")

	result, err := s.authenticate(ctx, serverURL, clientID, secret)
	if err != nil {
		return nil, err
	}

	if s.settings.observer != nil {
		s.settings.observer(serverURL, result.Status)
	}

	return result, nil
}

func (s *ServerTokenStore) authenticate(ctx context.Context, serverURL, clientID, secret string) (*AuthResult, error) {
	var cached content.TokenInfo
	if s.load(ctx, tokenKey(serverURL), &cached) && cached.AccessToken != "" {
		return &AuthResult{Token: cached.AccessToken, Status: AuthStatusCached}, nil
	}

	info, err := s.authority(ctx, serverURL, clientID)
	if err != nil {
		return nil, err
	}

	if info.IsEmpty() {
		return &AuthResult{Status: AuthStatusNotConfigured}, nil
	}

	token, err := s.tokens.GetTokenFromAuthority(ctx, info, secret)
	if err != nil {
		return nil, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if token == nil || token.AccessToken == "" {
		return &AuthResult{Status: AuthStatusFailed, Authority: info}, nil
	}

	if ttl := s.tokenTTL(token); ttl > 0 {
		s.store(ctx, tokenKey(serverURL), token, ttl)
	}

	return &AuthResult{Token: token.AccessToken, Status: AuthStatusAcquired, Authority: info}, nil
}

func (s *ServerTokenStore) authority(ctx context.Context, serverURL, clientID string) (content.AuthorityInfo, error) {
	var info content.AuthorityInfo
	if s.load(ctx, authorityKey(serverURL), &info) && !info.IsEmpty() {
		return info, nil
	}

	info, err := s.authorities.GetAuthorityInfo(ctx, serverURL)
	if err != nil {
		return content.AuthorityInfo{}, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return content.AuthorityInfo{}, ctxErr
	}

	if clientID != "" {
		info.ClientID = clientID
	}

	if !info.IsEmpty() {
		s.store(ctx, authorityKey(serverURL), info, constants.AuthorityCacheTTL)
	}

	return info, nil
}

// Forget drops the cached authority and token of serverURL.
func (s *ServerTokenStore) Forget(ctx context.Context, serverURL string) error {
	serverURL = strings.TrimSuffix(serverURL, "/")

	if err := s.cache.Delete(ctx, tokenKey(serverURL)); err != nil {
		return err
	}

	return s.cache.Delete(ctx, authorityKey(serverURL))
}

// Stats returns the cache statistics of the store.
func (s *ServerTokenStore) Stats() *content.CacheStats {
	return s.cache.GetStats()
}

// tokenTTL is the fixed token lifetime, shortened when the token itself
// expires sooner. A token inside the expiry buffer gets zero and is not cached.
func (s *ServerTokenStore) tokenTTL(token *content.TokenInfo) time.Duration {
	if token.ExpiresAt.IsZero() {
		return constants.TokenCacheTTL
	}

	remaining := token.ExpiresAt.Sub(s.settings.clock()) - constants.TokenExpirationBuffer
	if remaining <= 0 {
		return 0
	}

	return min(remaining, constants.TokenCacheTTL)
}

func (s *ServerTokenStore) load(ctx context.Context, key string, target any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		s.settings.logger.Warn("Discarding unreadable auth cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})

		return false
	}

	return true
}

func (s *ServerTokenStore) store(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err == nil {
		err = s.cache.Set(ctx, key, data, ttl)
	}

	if err != nil {
		s.settings.logger.Warn("Failed to cache auth entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func tokenKey(serverURL string) string {
	return "token:" + serverURL
}

func authorityKey(serverURL string) string {
	return "authority:" + serverURL
}
