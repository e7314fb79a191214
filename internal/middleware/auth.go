package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homeroom/internal/auth"
	"github.com/dukerupert/homeroom/internal/model"
)

const sessionCookieName = "homeroom_session"

// SessionLookup resolves a session cookie value. A nil session with a nil
// error means the token is unknown or expired.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

// LoadSession populates AuthContext when the request carries a valid session
// cookie. Requests without one pass through unchanged, so pages that serve
// both signed-in and signed-out visitors can sit behind it.
func LoadSession(sessions SessionLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				logger.Error("load session", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{AccountID: sess.AccountID, Session: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that LoadSession did not authenticate. API
// paths get a 401; pages are redirected to the login form.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.AccountID(r.Context()) == "" {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
