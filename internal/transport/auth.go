package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rpggio/tally/internal/auth"
)

// IdentityResolver resolves a caller identity from a bearer token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (auth.Identity, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// AuthMiddleware enforces bearer token authentication and stores the
// resolved identity in the request context.
func AuthMiddleware(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, "missing bearer token", auth.ErrUnauthenticated)
				return
			}

			id, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil || id.IsZero() {
				writeError(w, r, http.StatusUnauthorized, "invalid bearer token", auth.ErrUnauthenticated)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers without one of roles. It must run after
// AuthMiddleware.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := auth.FromContext(r.Context())
			if err := id.Require(roles...); err != nil {
				respondError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
