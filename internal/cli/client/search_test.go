package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.jpg")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xd8\xff\xe0not-really-a-jpeg"), 0644))
	return path
}

func newBackendClient(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := backend.NewClient(srv.URL)
	require.NoError(t, err)
	return client
}

func TestRunSearch_Text(t *testing.T) {
	client := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result_paths": ["/imgs/2.jpg", "/imgs/1.jpg"]}`))
	})

	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), &out, client, writeImage(t), false))

	text := out.String()
	assert.Contains(t, text, "Found 2 results for query.jpg")
	assert.Contains(t, text, "1. /imgs/2.jpg")
	assert.Contains(t, text, client.BaseURL()+"/get-image-by-path/?path=%2Fimgs%2F2.jpg")
}

func TestRunSearch_JSON(t *testing.T) {
	client := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), &out, client, writeImage(t), true))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "query.jpg", resp.Query)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.Error)
}

func TestRunSearch_BackendError(t *testing.T) {
	client := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	var out bytes.Buffer
	err := runSearch(context.Background(), &out, client, writeImage(t), false)

	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.Contains(t, out.String(), "Search request failed with status: 502")
}

func TestRunSearch_MissingFile(t *testing.T) {
	client := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("backend should not be called")
	})

	var out bytes.Buffer
	err := runSearch(context.Background(), &out, client, filepath.Join(t.TempDir(), "missing.jpg"), false)
	assert.Error(t, err)
}
