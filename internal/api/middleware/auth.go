package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/studykit/engine/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// ServiceKeyAuth authenticates the calling backend with a static bearer key
// and pulls the acting user's id from the X-User-ID header. User auth proper
// happens upstream; this service only scopes data by the id it is handed.
// An empty key disables the check for local development.
func ServiceKeyAuth(serviceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if serviceKey != "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					api.Error(w, http.StatusUnauthorized, "missing authorization header")
					return
				}

				if !strings.HasPrefix(authHeader, "Bearer ") {
					api.Error(w, http.StatusUnauthorized, "invalid authorization format")
					return
				}

				token := strings.TrimPrefix(authHeader, "Bearer ")
				if subtle.ConstantTimeCompare([]byte(token), []byte(serviceKey)) != 1 {
					api.Error(w, http.StatusUnauthorized, "invalid service key")
					return
				}
			}

			userID := r.Header.Get("X-User-ID")
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the acting user's id from context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
