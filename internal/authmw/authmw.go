// Package authmw provides HTTP middleware for admin API key authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
)

// AdminKey returns middleware that validates the x-admin-key header against
// the expected key. Comparison uses constant-time equality to prevent timing
// side-channel attacks. An empty expected key disables the check, for local
// setups without admin credentials.
func AdminKey(key string) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			got := []byte(r.Header.Get("x-admin-key"))

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
