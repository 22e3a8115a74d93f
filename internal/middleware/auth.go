package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/bryanwahyu/exewatch/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// ScannerTokenHeader carries the agent's shared secret on the ingest route.
const ScannerTokenHeader = "X-Scanner-Token"

// JWTAuth validates the bearer token on dashboard routes and stores the
// authenticated user id in the request context.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, http.StatusUnauthorized, "no token provided")
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "no token provided")
				return
			}

			userID, err := auth.GetUserIDFromToken(token, secret)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user id, if any.
func GetUserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// ScannerAuth gates the ingest route on the static shared scanner secret
// (constant-time comparison to prevent timing attacks).
func ScannerAuth(expectedToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(ScannerTokenHeader)
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				WriteError(w, http.StatusForbidden, "invalid scanner token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
