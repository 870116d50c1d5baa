// Package api implements the wordace REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminMiddleware requires "Authorization: Bearer <token>". An empty token
// turns the admin routes off entirely.
func AdminMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeJSON(w, http.StatusForbidden, errorBody("admin access is disabled"))
				return
			}
			auth := r.Header.Get("Authorization")
			given := strings.TrimPrefix(auth, "Bearer ")
			if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
