package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context by d. It never writes a response
// itself: the handler sees the deadline through its context and answers with
// its own error envelope, so the status is written exactly once.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
