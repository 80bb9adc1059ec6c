package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// LoadContent loads one content item.
func (r *Repository) LoadContent(ctx context.Context, req *content.LoadContentRequest) (content.Content, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	resp, err := r.send(ctx, http.MethodGet, odata)
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}

	return decodeEntity(resp.Body)
}

// LoadCollection loads the children of a container.
func (r *Repository) LoadCollection(ctx context.Context, req *content.LoadCollectionRequest) (*content.ContentList, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	resp, err := r.send(ctx, http.MethodGet, odata)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	return decodeList(resp.Body)
}

// QueryContent runs a content query.
func (r *Repository) QueryContent(ctx context.Context, req *content.QueryContentRequest) (*content.ContentList, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	resp, err := r.send(ctx, http.MethodGet, odata)
	if err != nil {
		return nil, fmt.Errorf("querying content: %w", err)
	}

	return decodeList(resp.Body)
}

// QueryCount returns the number of items a query matches. The request is
// sent with CountOnly set; req itself is not modified.
func (r *Repository) QueryCount(ctx context.Context, req *content.QueryContentRequest) (int, error) {
	odata, err := r.render(req)
	if err != nil {
		return 0, err
	}

	odata.CountOnly = true

	resp, err := r.send(ctx, http.MethodGet, odata)
	if err != nil {
		return 0, fmt.Errorf("counting content: %w", err)
	}

	count, err := strconv.Atoi(strings.Trim(string(unwrap(resp.Body)), `"`))
	if err != nil {
		return 0, fmt.Errorf("%w: count %q", content.ErrUnexpectedResponse, resp.Body)
	}

	return count, nil
}

// LoadReferences loads the items a reference field points to. Single
// references come back as a list of at most one item.
func (r *Repository) LoadReferences(ctx context.Context, req *content.LoadReferenceRequest) (*content.ContentList, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	resp, err := r.send(ctx, http.MethodGet, odata)
	if err != nil {
		return nil, fmt.Errorf("loading references: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(unwrap(resp.Body), &probe); err != nil {
		return nil, fmt.Errorf("parsing references: %w", err)
	}

	if _, isList := probe["results"]; isList {
		return decodeList(resp.Body)
	}

	if len(probe) == 0 {
		return &content.ContentList{}, nil
	}

	item, err := decodeEntity(resp.Body)
	if err != nil {
		return nil, err
	}

	return &content.ContentList{Count: 1, Items: []content.Content{item}}, nil
}

// IsContentExists reports whether path addresses an existing item.
func (r *Repository) IsContentExists(ctx context.Context, path string) (bool, error) {
	_, err := r.LoadContent(ctx, &content.LoadContentRequest{
		EntityOptions: content.EntityOptions{Path: path, Select: []string{"Id"}},
	})

	switch {
	case err == nil:
		return true, nil
	case content.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// CreateContent creates a content item of contentType below parentPath.
func (r *Repository) CreateContent(ctx context.Context, parentPath, contentType string, fields content.Content) (content.Content, error) {
	body := make(content.Content, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}

	body["__ContentType"] = contentType

	odata, err := r.render(&content.ContentRequest{
		EntityOptions:       content.EntityOptions{Path: parentPath},
		IsCollectionRequest: true,
		PostData:            body,
	})
	if err != nil {
		return nil, err
	}

	resp, err := r.send(ctx, http.MethodPost, odata)
	if err != nil {
		return nil, fmt.Errorf("creating content: %w", err)
	}

	return decodeEntity(resp.Body)
}

// UpdateContent patches the fields of the item req addresses.
func (r *Repository) UpdateContent(ctx context.Context, req *content.ContentRequest, fields content.Content) (content.Content, error) {
	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	odata.PostData = fields

	resp, err := r.send(ctx, http.MethodPatch, odata)
	if err != nil {
		return nil, fmt.Errorf("updating content: %w", err)
	}

	return decodeEntity(resp.Body)
}

// DeleteContent deletes the item req addresses. Without permanent the item
// goes to the trash.
func (r *Repository) DeleteContent(ctx context.Context, req *content.ContentRequest, permanent bool) error {
	odata, err := r.render(req)
	if err != nil {
		return err
	}

	odata.Parameters = append(odata.Parameters, content.Parameter{Name: "permanent", Value: strconv.FormatBool(permanent)})

	if _, err := r.send(ctx, http.MethodDelete, odata); err != nil {
		return fmt.Errorf("deleting content: %w", err)
	}

	return nil
}
