package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

// BinaryStream is an open binary property. The caller must close Body.
type BinaryStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	FileName      string
}

// Close closes the body.
func (b *BinaryStream) Close() error {
	return b.Body.Close()
}

// GetBinaryStream opens a binary property of the item req addresses. An
// empty propertyName reads the Binary field. Path addressed items are
// resolved to their id first.
func (r *Repository) GetBinaryStream(ctx context.Context, req *content.LoadContentRequest, propertyName string) (*BinaryStream, error) {
	if r.server == nil {
		return nil, content.ErrRepositoryNotConfigured
	}

	if _, err := req.ToODataRequest(r.server.URL); err != nil {
		return nil, err
	}

	id := req.ContentID
	if id <= 0 {
		item, err := r.LoadContent(ctx, &content.LoadContentRequest{
			EntityOptions: content.EntityOptions{Path: req.Path, Select: []string{"Id"}},
		})
		if err != nil {
			return nil, err
		}

		if id = item.ID(); id <= 0 {
			return nil, fmt.Errorf("%w: %s has no id", content.ErrUnexpectedResponse, req.Path)
		}
	}

	if propertyName == "" {
		propertyName = constants.DefaultBinaryPropertyName
	}

	query := url.Values{}
	query.Set("nodeid", strconv.Itoa(id))
	query.Set("propertyname", propertyName)

	if req.Version != "" {
		query.Set("version", req.Version)
	}

	resp, err := r.httpClient.Stream(ctx, &snhttp.Request{
		Method: http.MethodGet,
		Path:   constants.BinaryHandlerPath,
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("opening binary stream: %w", err)
	}

	stream := &BinaryStream{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}

	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		stream.FileName = params["filename"]
	}

	return stream, nil
}
