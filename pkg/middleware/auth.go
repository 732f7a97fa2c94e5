package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/leadagent/mailfinder/pkg/httputil"
)

type contextKeyType string

const clientKey contextKeyType = "client"

// APIKeyHeader is checked before the Authorization header.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests that do not present one of keys, either in
// X-API-Key or as "Authorization: Bearer <key>". An empty key list disables
// the check. The accepted key's index is stored as the client label.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	digests := make([][32]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					presented = parts[1]
				}
			}
			if presented == "" {
				writeAuthError(w, "missing api key")
				return
			}

			sum := sha256.Sum256([]byte(presented))
			for i, d := range digests {
				if subtle.ConstantTimeCompare(sum[:], d[:]) == 1 {
					ctx := context.WithValue(r.Context(), clientKey, clientLabel(i))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			writeAuthError(w, "invalid api key")
		})
	}
}

// ClientFromContext returns the label of the API key that authenticated the request.
func ClientFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(clientKey).(string); ok {
		return c
	}
	return ""
}

func clientLabel(i int) string {
	return "key-" + strconv.Itoa(i)
}

func writeAuthError(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: message},
	})
}
