package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get("X-Request-ID"))
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-42", captured)
}

func TestRequestID_ReplacesMalformed(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	for _, incoming := range []string{"bad id with spaces", strings.Repeat("a", 65), "<script>"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, incoming)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, incoming, captured)
		assert.Len(t, captured, 36)
	}
}

func TestMaxBodyBytes_RejectsDeclaredOversize(t *testing.T) {
	handler := MaxBodyBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("too large"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "upload exceeds the 4 B limit")
}

func TestMaxBodyBytes_ReportsBinaryUnits(t *testing.T) {
	const limit = 20 << 20
	handler := MaxBodyBytes(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("x"))
	req.ContentLength = limit + 1
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "upload exceeds the 20 MiB limit")
}

func TestMaxBodyBytes_IgnoresBodilessMethods(t *testing.T) {
	called := false
	handler := MaxBodyBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/images?path=a.jpg", strings.NewReader("too large"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
}

func TestMaxBodyBytes_LimitsStreamedBody(t *testing.T) {
	var readErr error
	handler := MaxBodyBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("too large"))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Error(t, readErr)
}

func TestAccessLog_IncludesSessionID(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("X-Session-ID", "sess-9")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, http.MethodGet, entry.Method)
	assert.Equal(t, "/api/state", entry.Path)
	assert.Equal(t, http.StatusTeapot, entry.Status)
	assert.Equal(t, 2, entry.Bytes)
	assert.Equal(t, "sess-9", entry.SessionID)
	assert.Zero(t, entry.UploadBytes)
}

func TestAccessLog_RecordsRouteAndUpload(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})

	r := chi.NewRouter()
	r.Use(AccessLog)
	r.Post("/select", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	})

	req := httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("image"))
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "/select", entry.Route)
	assert.Equal(t, http.StatusSeeOther, entry.Status)
	assert.Equal(t, int64(5), entry.UploadBytes)
}

func TestSpanStatus(t *testing.T) {
	assert.Equal(t, sentry.SpanStatusOK, spanStatus(http.StatusSeeOther))
	assert.Equal(t, sentry.SpanStatusNotFound, spanStatus(http.StatusNotFound))
	assert.Equal(t, sentry.SpanStatusResourceExhausted, spanStatus(http.StatusRequestEntityTooLarge))
	assert.Equal(t, sentry.SpanStatusInvalidArgument, spanStatus(http.StatusUnprocessableEntity))
	assert.Equal(t, sentry.SpanStatusUnavailable, spanStatus(http.StatusBadGateway))
	assert.Equal(t, sentry.SpanStatusInternalError, spanStatus(http.StatusInternalServerError))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
