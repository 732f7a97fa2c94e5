package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks GET responses as privately cacheable for maxAge seconds.
// Stored lookups never change once written, so clients may reuse them.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("private, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
