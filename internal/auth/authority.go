package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// AuthorityResolver asks a content server which identity provider it trusts.
type AuthorityResolver struct {
	settings *settings
}

// NewAuthorityResolver creates a resolver.
func NewAuthorityResolver(opts ...Option) *AuthorityResolver {
	return &AuthorityResolver{settings: newSettings(opts)}
}

// DiscoveryRequest returns the call that advertises the authority of
// serverURL.
func DiscoveryRequest(serverURL string) *content.ODataRequest {
	return &content.ODataRequest{
		ServerURL:  serverURL,
		Path:       constants.RootPath,
		ActionName: constants.AuthorityDiscoveryAction,
		Parameters: []content.Parameter{{Name: "clientType", Value: constants.AuthorityClientType}},
	}
}

// GetAuthorityInfo performs one discovery call against serverURL. Failures
// are logged and yield the empty AuthorityInfo; only context cancellation is
// returned as an error.
func (r *AuthorityResolver) GetAuthorityInfo(ctx context.Context, serverURL string) (content.AuthorityInfo, error) {
	info, err := r.discover(ctx, serverURL)
	if err == nil {
		return info, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return content.AuthorityInfo{}, ctxErr
	}

	r.settings.logger.Warn("Authority discovery failed", map[string]interface{}{
		"server": serverURL,
		"error":  err.Error(),
	})

	return content.AuthorityInfo{}, nil
}

func (r *AuthorityResolver) discover(ctx context.Context, serverURL string) (content.AuthorityInfo, error) {
	path, err := DiscoveryRequest(serverURL).RelativeURL()
	if err != nil {
		return content.AuthorityInfo{}, err
	}

	resp, err := r.settings.transport(serverURL).Get(ctx, path, nil)
	if err != nil {
		return content.AuthorityInfo{}, err
	}

	var info content.AuthorityInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return content.AuthorityInfo{}, fmt.Errorf("parsing authority info: %w", err)
	}

	return info, nil
}
