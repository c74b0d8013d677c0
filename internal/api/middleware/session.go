package middleware

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/vsearch/internal/controller"
)

type contextKey string

const (
	SessionIDKey  contextKey = "session_id"
	controllerKey contextKey = "controller"

	SessionCookieName = "vsearch_session"
)

// SessionStore resolves a session id to its controller, creating one on miss.
type SessionStore interface {
	GetOrCreate(id string) (string, *controller.Controller, bool)
}

// Session binds every request to a per-browser controller via a cookie.
func Session(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var requested string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				requested = cookie.Value
			}

			id, ctrl, created := store.GetOrCreate(requested)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			r.Header.Set("X-Session-ID", id)
			ctx := context.WithValue(r.Context(), SessionIDKey, id)
			ctx = context.WithValue(ctx, controllerKey, ctrl)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(SessionIDKey).(string)
	return id
}

// GetController returns the session controller, or nil outside Session.
func GetController(ctx context.Context) *controller.Controller {
	ctrl, _ := ctx.Value(controllerKey).(*controller.Controller)
	return ctrl
}
