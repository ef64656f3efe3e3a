package middleware

import (
	"context"
	"net/http"
	"strings"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
)

type contextKey string

const (
	ProfileKey contextKey = "profile"
)

// Identifier resolves an auth token to a profile. Satisfied by the
// identity service.
type Identifier interface {
	Identify(ctx context.Context, token string) (*domain.Profile, error)
}

// Auth authenticates requests via session cookie or bearer token and
// stores the resolved profile in the request context.
func Auth(ident Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
				return
			}

			profile, err := ident.Identify(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"Invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ProfileKey, profile)
			ctx = observability.WithProfileID(ctx, profile.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken pulls the auth token from the session cookie, the
// Authorization header, or the token query parameter (the latter for
// websocket clients that cannot set headers).
func ExtractToken(r *http.Request) string {
	if cookie, err := r.Cookie("session_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// GetProfile returns the authenticated profile stored by Auth.
func GetProfile(ctx context.Context) (*domain.Profile, bool) {
	profile, ok := ctx.Value(ProfileKey).(*domain.Profile)
	return profile, ok
}

// WithProfile stores a profile in the context (used by tests and the
// websocket handler, which authenticates internally).
func WithProfile(ctx context.Context, profile *domain.Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, profile)
}
