package client

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")
	reader := bytes.NewReader(data)

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)

	// Progress should have been called at least once
	assert.NotEmpty(t, progressCalls)

	// Final progress should equal total
	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	pr := &progressReader{
		reader:     reader,
		total:      int64(len(data)),
		onProgress: nil, // No callback
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestProgressReader_SmallReads(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	var progressValues []int64
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressValues = append(progressValues, current)
		},
	}

	// Read one byte at a time
	buf := make([]byte, 1)
	for {
		n, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	// Progress should increase monotonically
	for i := 1; i < len(progressValues); i++ {
		assert.GreaterOrEqual(t, progressValues[i], progressValues[i-1])
	}
}

func TestResolveServerURL(t *testing.T) {
	useConfigPath(t, filepath.Join(t.TempDir(), "config.json"))
	t.Setenv(envServerURL, "")
	assert.Equal(t, defaultServerURL, ResolveServerURL(""))

	require.NoError(t, UpdateGlobalConfig(func(c *GlobalConfig) { c.ServerURL = "http://stored:8080" }))
	assert.Equal(t, "http://stored:8080", ResolveServerURL(""))

	t.Setenv(envServerURL, "http://vsearchd:9000/")
	assert.Equal(t, "http://vsearchd:9000", ResolveServerURL(""))

	assert.Equal(t, "http://flag:1", ResolveServerURL("http://flag:1/"))
}

func TestAPIClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/history", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[]}}`))
	}))
	defer srv.Close()

	resp, err := NewAPIClient(srv.URL+"/").Get("/api/history", url.Values{"limit": {"5"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(resp.Data))
}

func TestAPIClient_Get_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"search history is not configured"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).Get("/api/history", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "search history is not configured", apiErr.Message)
}

func TestAPIClient_Get_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL).Get("/api/history", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "bad gateway")
}

func TestDownloadFile(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "img.jpg")
	var last int64
	n, err := DownloadFile(srv.Client(), srv.URL, out, func(current, total int64) { last = current })
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, int64(len(payload)), last)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadFile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DownloadFile(srv.Client(), srv.URL, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorContains(t, err, "status 404")
}
