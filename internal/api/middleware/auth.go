package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/kidroute/kidroute/internal/api/models"
	"github.com/kidroute/kidroute/internal/auth"
)

type userIDKey struct{}

// TokenValidator resolves an access token to a user id.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

// Auth rejects requests without a valid bearer token and stores the token's
// user id in the request context.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			token := strings.TrimSpace(header[len(bearerPrefix):])
			if token == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			userID, err := validator.ValidateAccessToken(token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrAccessTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrInvalidAccessToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	models.NewUnauthorized(GetRequestID(r.Context()), detail).WithInstance(r.URL.Path).Write(w)
}

// GetUserID returns the authenticated user id stored in ctx, or "".
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}
