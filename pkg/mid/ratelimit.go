package mid

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that rejects requests above rps with 429.
// The limit is global, not per-client; analysis uploads are heavy enough
// that a single shared bucket is the right granularity.
func RateLimit(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
