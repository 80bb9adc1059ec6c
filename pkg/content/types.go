package content

import (
	"encoding/json"
	"fmt"
	"time"
)

// Content is a content item as returned by the repository. Field names and
// types are defined by the server's content type schema.
type Content map[string]any

// ID returns the Id field, or 0 when absent.
func (c Content) ID() int {
	switch v := c["Id"].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()

		return int(n)
	case int:
		return v
	default:
		return 0
	}
}

// StringField returns a string field, or "" when absent or not a string.
func (c Content) StringField(field string) string {
	s, _ := c[field].(string)

	return s
}

// Name returns the Name field.
func (c Content) Name() string { return c.StringField("Name") }

// Path returns the Path field.
func (c Content) Path() string { return c.StringField("Path") }

// Type returns the Type field.
func (c Content) Type() string { return c.StringField("Type") }

// ContentList is one page of a collection response.
type ContentList struct {
	// Count is the total number of matching items when the request asked
	// for an inline count, otherwise the number of returned items.
	Count int       `json:"__count"`
	Items []Content `json:"results"`
}

// AuthorityInfo describes the identity provider a server trusts. The zero
// value means the server requires no authentication.
type AuthorityInfo struct {
	Authority string `json:"authority"`
	ClientID  string `json:"client_id"`
}

// IsEmpty reports whether no authority is configured.
func (a AuthorityInfo) IsEmpty() bool {
	return a.Authority == ""
}

// TokenInfo is the result of a token exchange.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// ServerAuthentication holds the credentials sent with every request.
// AccessToken takes precedence over APIKey.
type ServerAuthentication struct {
	AccessToken string `json:"-"`
	APIKey      string `json:"-"`
}

// Server is a resolved connection target.
type Server struct {
	Name           string               `json:"name"`
	URL            string               `json:"url"`
	IsTrusted      bool                 `json:"is_trusted,omitempty"`
	Authentication ServerAuthentication `json:"-"`
}

// UploadResult describes the content created or updated by an upload.
type UploadResult struct {
	ID     int    `json:"Id"`
	Name   string `json:"Name"`
	Type   string `json:"Type"`
	URL    string `json:"Url"`
	Length int64  `json:"Length"`
}

// PermissionValue is the state of one permission in an entry.
type PermissionValue string

const (
	// PermissionAllow grants the permission.
	PermissionAllow PermissionValue = "allow"
	// PermissionDeny denies the permission.
	PermissionDeny PermissionValue = "deny"
	// PermissionUndefined clears an explicit setting.
	PermissionUndefined PermissionValue = "undefined"
)

// SetPermissionRequest changes the permissions of one identity on a content
// item.
type SetPermissionRequest struct {
	Identity    string
	LocalOnly   bool
	Permissions map[string]PermissionValue
}

// MarshalJSON renders the request as a flat object, with each permission
// name as a key next to identity and localOnly.
func (r SetPermissionRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Permissions)+2)
	for name, value := range r.Permissions {
		out[name] = value
	}

	out["identity"] = r.Identity
	out["localOnly"] = r.LocalOnly

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal permission request: %w", err)
	}

	return data, nil
}
