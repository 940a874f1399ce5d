package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ralsuliman/studysync-tasks/services"
)

type contextKey string

const identityContextKey contextKey = "identity"

// AuthMiddleware gates REST routes behind a bearer token and puts the
// caller identity in the request context.
type AuthMiddleware struct {
	authService *services.AuthService
}

func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		// Extract token from Bearer format
		authParts := strings.Split(authHeader, " ")
		if len(authParts) != 2 || authParts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		identity, err := m.authService.VerifyJWT(authParts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFromContext returns the authenticated caller, if any.
func identityFromContext(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(services.Identity)
	return identity, ok
}
