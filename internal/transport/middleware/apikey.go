package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKey guards the invoice management surface with a shared-key header
// check. The gateway webhook is authenticated by its payload signature
// instead and must not sit behind this middleware. An empty configured key
// disables the check (local development).
func APIKey(key string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				logger.Warn("rejected request with invalid api key",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "invalid api key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
