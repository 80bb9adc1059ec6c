package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

func TestRepository_Invoke(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/OData.svc/content(12)/GetVersions", r.URL.Path)
			assert.Empty(t, body)
			_, _ = w.Write([]byte(`{"d":{"results":[]}}`))
		case http.MethodPost:
			assert.Equal(t, "/OData.svc/Root/Content('Docs')/Rename", r.URL.Path)
			assert.JSONEq(t, `{"newName":"Documents"}`, string(body))
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer server.Close()

	repo := NewTestRepository(server.URL)
	ctx := context.Background()

	result, err := repo.InvokeFunction(ctx, &content.OperationRequest{
		EntityOptions: content.EntityOptions{ContentID: 12},
		OperationName: "GetVersions",
		PostData:      map[string]string{"ignored": "x"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, string(result))

	action := &content.OperationRequest{
		EntityOptions: content.EntityOptions{Path: "/Root/Content/Docs"},
		OperationName: "Rename",
		PostData:      map[string]string{"newName": "Documents"},
	}

	result, err = repo.Invoke(ctx, action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))

	_, err = repo.InvokeAction(ctx, &content.OperationRequest{EntityOptions: content.EntityOptions{Path: "/Root"}})
	require.ErrorIs(t, err, content.ErrMissingRequiredField)
}

func TestRepository_Permissions(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/OData.svc/Root/Content('Docs')/GetPermissions":
			assert.Equal(t, "/Root/IMS/Public/editors", r.URL.Query().Get("identity"))
			_, _ = w.Write([]byte(`{"d":{"id":5,"entries":[]}}`))
		case "/OData.svc/Root/Content('Docs')/SetPermissions":
			assert.Equal(t, http.MethodPost, r.Method)

			var body struct {
				R []map[string]any `json:"r"`
			}

			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.R, 1)
			assert.Equal(t, "/Root/IMS/Public/editors", body.R[0]["identity"])
			assert.Equal(t, "allow", body.R[0]["Save"])
			assert.Equal(t, false, body.R[0]["localOnly"])
			w.WriteHeader(http.StatusNoContent)
		case "/OData.svc/Root/Content('Docs')/HasPermission":
			assert.Equal(t, "See,Open", r.URL.Query().Get("permissions"))

			if r.URL.Query().Get("user") == "/Root/IMS/Public/visitor" {
				_, _ = w.Write([]byte(`false`))

				return
			}

			_, _ = w.Write([]byte(`true`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	repo := NewTestRepository(server.URL)
	ctx := context.Background()

	entries, err := repo.GetPermissions(ctx, "/Root/Content/Docs", "/Root/IMS/Public/editors")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":5,"entries":[]}`, string(entries))

	err = repo.SetPermissions(ctx, "/Root/Content/Docs", []content.SetPermissionRequest{{
		Identity:    "/Root/IMS/Public/editors",
		Permissions: map[string]content.PermissionValue{"Save": content.PermissionAllow},
	}})
	require.NoError(t, err)

	allowed, err := repo.HasPermission(ctx, "/Root/Content/Docs", []string{"See", "Open"}, "")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.HasPermission(ctx, "/Root/Content/Docs", []string{"See", "Open"}, "/Root/IMS/Public/visitor")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRepository_GetBinaryStream(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/OData.svc/Root/Content('a.txt')":
			_, _ = w.Write([]byte(`{"d":{"Id":77}}`))
		case "/binaryhandler.ashx":
			assert.Equal(t, "77", r.URL.Query().Get("nodeid"))
			assert.Equal(t, "Binary", r.URL.Query().Get("propertyname"))
			w.Header().Set("Content-Type", "text/plain")
			w.Header().Set("Content-Disposition", `attachment; filename="a.txt"`)
			_, _ = w.Write([]byte("hello"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	repo := NewTestRepository(server.URL)

	stream, err := repo.GetBinaryStream(context.Background(), &content.LoadContentRequest{
		EntityOptions: content.EntityOptions{Path: "/Root/Content/a.txt"},
	}, "")
	require.NoError(t, err)

	defer func() { _ = stream.Close() }()

	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", stream.ContentType)
	assert.Equal(t, "a.txt", stream.FileName)

	_, err = repo.GetBinaryStream(context.Background(), &content.LoadContentRequest{
		EntityOptions: content.EntityOptions{Path: "/Root/Content/missing.txt"},
	}, "")
	require.Error(t, err)
	assert.True(t, content.IsNotFound(err))
}
