package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	gen "github.com/kailas-cloud/pdfrag/internal/transport/generated"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// Empty keys are ignored, so an unset ${API_KEY} disables authentication.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var validKeys [][]byte
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			validKeys = append(validKeys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, gen.ErrorResponseCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, gen.ErrorResponseCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			if !keyMatches(validKeys, []byte(auth[len(bearerPrefix):])) {
				writeError(w, http.StatusUnauthorized, gen.ErrorResponseCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// keyMatches compares against every key in constant time.
func keyMatches(keys [][]byte, token []byte) bool {
	matched := 0
	for _, k := range keys {
		matched |= subtle.ConstantTimeCompare(k, token)
	}
	return matched == 1
}
