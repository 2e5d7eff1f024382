package middleware

import (
	"context"
	"net/http"

	"github.com/cinescope/movie_reviewer/internal/delivery/http/response"
	"github.com/cinescope/movie_reviewer/internal/domain"
	"github.com/cinescope/movie_reviewer/internal/pkg/session"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id stored by Authenticate, or
// ("", false) for anonymous requests.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Authenticate resolves the session cookie into a user id on the request
// context. Requests without a valid session pass through anonymously;
// handlers that need a user gate on RequireAuth.
func Authenticate(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err == nil {
				if userID, ok := sessions.Validate(cookie.Value); ok {
					r = r.WithContext(WithUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that did not present a valid session
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			response.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminDirectory is the user lookup RequireAdmin needs.
type AdminDirectory interface {
	Get(userID string) (*domain.User, error)
}

// RequireAdmin rejects requests from non-admin users. Must be mounted
// after RequireAuth.
func RequireAdmin(users AdminDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserID(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			user, err := users.Get(userID)
			if err != nil || !user.IsAdmin {
				response.Error(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
