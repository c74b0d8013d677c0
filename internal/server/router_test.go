package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/vsearch/internal/api/middleware"
	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/preview"
	"github.com/cloo-solutions/vsearch/internal/session"
	"github.com/cloo-solutions/vsearch/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T, backendHandler http.HandlerFunc, maxBody int64) (http.Handler, *session.Manager) {
	t.Helper()

	srv := httptest.NewServer(backendHandler)
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(srv.URL)
	require.NoError(t, err)

	manager := session.NewManager(func(id string) *controller.Controller {
		return controller.New(client, preview.New(64), controller.WithSessionID(id))
	}, time.Minute)

	router := NewRouter(RouterConfig{
		Sessions:     manager,
		WebHandler:   web.NewHandler(client, nil),
		MaxBodyBytes: maxBody,
	})
	return router, manager
}

func multipartBody(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestRouter_Health(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {}, 0)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
	assert.Equal(t, "disabled", resp["data"]["history"])
}

func TestRouter_SearchAgainstBackend(t *testing.T) {
	var gotField, gotFilename string
	router, manager := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != backend.SearchPath || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		file, header, err := r.FormFile(backend.FileField)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file.Close()
		gotField = backend.FileField
		gotFilename = header.Filename
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result_paths": ["/c.jpg", "/a.jpg", "/b.jpg"]}`))
	}, 0)

	body, contentType := multipartBody(t, "query.jpg", []byte("fake-jpeg"))
	req := httptest.NewRequest(http.MethodPost, "/select", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, middleware.SessionCookieName, cookie.Name)

	req = httptest.NewRequest(http.MethodPost, "/search", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	ctrl, err := manager.Get(cookie.Value)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !ctrl.IsLoading() }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "file", gotField)
	assert.Equal(t, "query.jpg", gotFilename)
	assert.Equal(t, []string{"/c.jpg", "/a.jpg", "/b.jpg"}, ctrl.Snapshot().Results)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	page := w.Body.String()
	c := strings.Index(page, "path=%2Fc.jpg")
	a := strings.Index(page, "path=%2Fa.jpg")
	b := strings.Index(page, "path=%2Fb.jpg")
	require.True(t, c > 0 && a > c && b > a, "results must render in response order")
}

func TestRouter_BodyLimit(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {}, 16)

	body, contentType := multipartBody(t, "big.jpg", bytes.Repeat([]byte("x"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/select", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_HistoryDisabled(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {}, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {}, 0)

	req := httptest.NewRequest(http.MethodGet, "/knowledge", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"not found"`)
}

func TestRouter_WrongMethod(t *testing.T) {
	router, _ := setupRouter(t, func(w http.ResponseWriter, r *http.Request) {}, 0)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
