package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// Permission operations exposed by the server.
const (
	getPermissionsOperation = "GetPermissions"
	setPermissionsOperation = "SetPermissions"
	hasPermissionOperation  = "HasPermission"
)

// InvokeFunction calls an operation with GET and returns its unwrapped
// result. Any PostData on req is ignored.
func (r *Repository) InvokeFunction(ctx context.Context, req *content.OperationRequest) (json.RawMessage, error) {
	return r.invoke(ctx, http.MethodGet, req)
}

// InvokeAction calls an operation with POST, sending req.PostData as the
// body.
func (r *Repository) InvokeAction(ctx context.Context, req *content.OperationRequest) (json.RawMessage, error) {
	return r.invoke(ctx, http.MethodPost, req)
}

// Invoke picks GET for operations without a payload and POST otherwise.
func (r *Repository) Invoke(ctx context.Context, req *content.OperationRequest) (json.RawMessage, error) {
	return r.invoke(ctx, methodFor(req.PostData), req)
}

func (r *Repository) invoke(ctx context.Context, method string, req *content.OperationRequest) (json.RawMessage, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	if method == http.MethodGet {
		odata.PostData = nil
	}

	resp, err := r.send(ctx, method, odata)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", req.OperationName, err)
	}

	return unwrap(resp.Body), nil
}

// GetPermissions returns the permission entries of the item at path. A
// non-empty identity narrows the result to that identity.
func (r *Repository) GetPermissions(ctx context.Context, path, identity string) (json.RawMessage, error) {
	req := &content.OperationRequest{
		EntityOptions: content.EntityOptions{Path: path},
		OperationName: getPermissionsOperation,
	}

	if identity != "" {
		if err := req.Parameters().Add("identity", identity); err != nil {
			return nil, err
		}
	}

	return r.InvokeFunction(ctx, req)
}

// SetPermissions applies permission changes to the item at path.
func (r *Repository) SetPermissions(ctx context.Context, path string, entries []content.SetPermissionRequest) error {
	_, err := r.InvokeAction(ctx, &content.OperationRequest{
		EntityOptions: content.EntityOptions{Path: path},
		OperationName: setPermissionsOperation,
		PostData:      map[string]any{"r": entries},
	})

	return err
}

// HasPermission reports whether user holds every permission on the item
// at path. An empty user checks the current user.
func (r *Repository) HasPermission(ctx context.Context, path string, permissions []string, user string) (bool, error) {
	req := &content.OperationRequest{
		EntityOptions: content.EntityOptions{Path: path},
		OperationName: hasPermissionOperation,
	}

	bag := req.Parameters()
	if err := bag.Add("permissions", strings.Join(permissions, ",")); err != nil {
		return false, err
	}

	if user != "" {
		if err := bag.Add("user", user); err != nil {
			return false, err
		}
	}

	raw, err := r.InvokeFunction(ctx, req)
	if err != nil {
		return false, err
	}

	var allowed bool
	if err := json.Unmarshal(raw, &allowed); err != nil {
		return false, fmt.Errorf("%w: %s", content.ErrUnexpectedResponse, raw)
	}

	return allowed, nil
}
