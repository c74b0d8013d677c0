package server

import (
	"net/http"

	"github.com/cloo-solutions/vsearch/internal/api"
	"github.com/cloo-solutions/vsearch/internal/api/middleware"
	"github.com/cloo-solutions/vsearch/internal/web"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxBodyBytes caps a query image upload.
const DefaultMaxBodyBytes int64 = 20 * 1024 * 1024

type RouterConfig struct {
	Sessions     middleware.SessionStore
	WebHandler   *web.Handler
	MaxBodyBytes int64

	// HistoryEnabled is reported by /health so probes can tell a
	// metadata-only deployment apart.
	HistoryEnabled bool
}

// NewRouter serves the search page, its form posts, the state and
// history JSON, and the result image proxy. Only page routes carry a
// session; /images and /api/history are shared by every browser.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	history := "disabled"
	if cfg.HistoryEnabled {
		history = "enabled"
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok", "history": history})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(cfg.Sessions))

		r.Get("/", cfg.WebHandler.Index)
		r.Get("/api/state", cfg.WebHandler.State)
		r.With(middleware.MaxBodyBytes(maxBodyBytes)).Post("/select", cfg.WebHandler.Select)
		r.Post("/search", cfg.WebHandler.Search)
	})

	r.Get("/api/history", cfg.WebHandler.History)
	r.Get("/images", cfg.WebHandler.Image)

	return r
}
