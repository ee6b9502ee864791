package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filedrop/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// AuthenticatedKey is the context key for the authenticated fact. Handlers
// downstream of RequireAuth only ever see this boolean, never the credential.
const AuthenticatedKey contextKey = "authenticated"

// RequireAuth returns middleware that validates a Bearer JWT issued by the
// login endpoint and marks the request context as authenticated.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAuthenticated reports whether RequireAuth marked this context.
func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(AuthenticatedKey).(bool)
	return v
}
