package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	snhttp "github.com/fivetwenty-io/sncontent/internal/http"
	"github.com/fivetwenty-io/sncontent/pkg/content"
)

const (
	defaultUploadContentType = "File"
	uploadFileField          = "files[]"
)

// Upload streams size bytes from reader into a new or existing file below
// the parent req addresses. Files larger than the chunk size are sent in
// chunks after an initial call that returns a chunk token.
func (r *Repository) Upload(ctx context.Context, req *content.UploadRequest, reader io.Reader, size int64) (*content.UploadResult, error) {
	if reader == nil {
		return nil, content.ErrNilReader
	}

	if size < 0 {
		return nil, fmt.Errorf("%w: %d", content.ErrInvalidUploadSize, size)
	}

	odata, err := r.render(req)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultUploadContentType
	}

	fields := map[string]string{
		"ContentType":  contentType,
		"FileName":     req.ContentName,
		"PropertyName": req.EffectivePropertyName(),
		"Overwrite":    strconv.FormatBool(req.Overwrite),
		"FileLength":   strconv.FormatInt(size, 10),
	}

	u := &upload{
		repo:     r,
		id:       uuid.NewString(),
		fields:   fields,
		fileName: req.EffectiveFileName(),
	}

	chunkSize := int64(req.EffectiveChunkSize())
	if size <= chunkSize {
		return u.single(ctx, odata, reader, size)
	}

	return u.chunked(ctx, odata, reader, size, chunkSize)
}

type upload struct {
	repo     *Repository
	id       string
	fields   map[string]string
	fileName string
}

func (u *upload) single(ctx context.Context, odata *content.ODataRequest, reader io.Reader, size int64) (*content.UploadResult, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("reading upload data: %w", unexpectedEOF(err))
	}

	fields := u.withFields(map[string]string{"UseChunk": "false"})

	resp, err := u.post(ctx, odata, fields, data, nil)
	if err != nil {
		return nil, err
	}

	return decodeUploadResult(resp.Body)
}

func (u *upload) chunked(ctx context.Context, odata *content.ODataRequest, reader io.Reader, size, chunkSize int64) (*content.UploadResult, error) {
	init := *odata
	init.Parameters = append(append([]content.Parameter(nil), odata.Parameters...), content.Parameter{Name: "create", Value: "1"})

	resp, err := u.post(ctx, &init, u.withFields(map[string]string{"UseChunk": "true"}), nil, nil)
	if err != nil {
		return nil, err
	}

	token := strings.Trim(strings.TrimSpace(string(resp.Body)), `"`)
	if token == "" {
		return nil, content.ErrChunkTokenMissing
	}

	fields := u.withFields(map[string]string{"UseChunk": "true", "ChunkToken": token})
	buf := make([]byte, chunkSize)

	for offset := int64(0); offset < size; {
		chunk := buf[:min(chunkSize, size-offset)]
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return nil, fmt.Errorf("reading upload chunk at %d: %w", offset, unexpectedEOF(err))
		}

		end := offset + int64(len(chunk)) - 1
		contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, end, size)

		u.repo.logger.Debug("Uploading chunk", map[string]interface{}{
			"upload_id": u.id,
			"range":     contentRange,
		})

		resp, err = u.post(ctx, odata, fields, chunk, map[string]string{"Content-Range": contentRange})
		if err != nil {
			return nil, err
		}

		offset = end + 1
	}

	return decodeUploadResult(resp.Body)
}

func (u *upload) withFields(extra map[string]string) map[string]string {
	fields := make(map[string]string, len(u.fields)+len(extra))
	for k, v := range u.fields {
		fields[k] = v
	}

	for k, v := range extra {
		fields[k] = v
	}

	return fields
}

func (u *upload) post(ctx context.Context, odata *content.ODataRequest, fields map[string]string, data []byte, headers map[string]string) (*snhttp.Response, error) {
	path, err := odata.RelativeURL()
	if err != nil {
		return nil, err
	}

	var file *snhttp.FilePart
	if data != nil {
		file = &snhttp.FilePart{FieldName: uploadFileField, FileName: u.fileName, Data: data}
	}

	sent := map[string]string{constants.UploadIDHeader: u.id}
	for k, v := range headers {
		sent[k] = v
	}

	resp, err := u.repo.httpClient.PostMultipart(ctx, path, fields, file, sent)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", u.fileName, err)
	}

	return resp, nil
}

// unexpectedEOF reports a reader that ended before the declared size.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

func decodeUploadResult(body []byte) (*content.UploadResult, error) {
	var result content.UploadResult
	if err := json.Unmarshal(unwrap(body), &result); err != nil {
		return nil, fmt.Errorf("parsing upload result: %w", err)
	}

	return &result, nil
}
