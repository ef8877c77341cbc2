package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// APIKey rejects requests whose X-API-Key header does not match the
// configured service key. The router only installs it when a key is set.
func APIKey(serviceKey string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != serviceKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
