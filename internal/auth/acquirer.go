package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// ErrEmptyAccessToken is reported when the token endpoint answers without a token.
var ErrEmptyAccessToken = errors.New("token response carries no access token")

// TokenAcquirer exchanges client credentials for an access token at the
// token endpoint an authority advertises.
type TokenAcquirer struct {
	settings *settings
}

// NewTokenAcquirer creates an acquirer.
func NewTokenAcquirer(opts ...Option) *TokenAcquirer {
	return &TokenAcquirer{settings: newSettings(opts)}
}

// GetTokenFromAuthority runs OIDC discovery on info.Authority and a client
// credentials grant with the sensenet scope. Failures are logged and yield
// nil; only context cancellation is returned as an error.
func (a *TokenAcquirer) GetTokenFromAuthority(ctx context.Context, info content.AuthorityInfo, secret string) (*content.TokenInfo, error) {
	if info.IsEmpty() {
		return nil, nil
	}

	token, err := a.acquire(ctx, info, secret)
	if err == nil {
		return token, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	a.settings.logger.Warn("Token acquisition failed", map[string]interface{}{
		"authority": info.Authority,
		"client_id": info.ClientID,
		"error":     err.Error(),
	})

	return nil, nil
}

func (a *TokenAcquirer) acquire(ctx context.Context, info content.AuthorityInfo, secret string) (*content.TokenInfo, error) {
	ctx = oidc.ClientContext(ctx, a.settings.tokenHTTPClient())

	provider, err := oidc.NewProvider(ctx, strings.TrimSuffix(info.Authority, "/"))
	if err != nil {
		return nil, fmt.Errorf("discovering token endpoint: %w", err)
	}

	config := &clientcredentials.Config{
		ClientID:     info.ClientID,
		ClientSecret: secret,
		TokenURL:     provider.Endpoint().TokenURL,
		Scopes:       []string{constants.TokenScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting client credentials token: %w", err)
	}

	if token.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}

	return newTokenInfo(token, a.settings.clock()), nil
}

// newTokenInfo converts an oauth2 token. The expiry comes from expires_in
// and falls back to the exp claim of a JWT access token.
func newTokenInfo(token *oauth2.Token, now time.Time) *content.TokenInfo {
	info := &content.TokenInfo{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	if info.TokenType == "" {
		info.TokenType = "Bearer"
	}

	if scope, ok := token.Extra("scope").(string); ok {
		info.Scope = scope
	}

	if info.ExpiresAt.IsZero() {
		info.ExpiresAt = jwtExpiry(token.AccessToken)
	}

	if !info.ExpiresAt.IsZero() {
		info.ExpiresIn = int64(info.ExpiresAt.Sub(now).Seconds())
	}

	return info
}

// jwtExpiry reads the exp claim without verifying the signature. Opaque
// tokens yield the zero time.
func jwtExpiry(accessToken string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}

	return exp.Time
}
