package middleware

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/platinummonkey/turnstile/pkg/contextkeys"
)

// maxCachedBody bounds how much of a request body the cache will buffer
const maxCachedBody = 1 << 20 // 1 MiB

// BodyCache drains the once-readable request body and attaches the parsed
// JSON object to the request context, so that the CSRF stage and the handler
// can both see it. Malformed, empty, and non-object bodies all cache as an
// empty object; the raw stream is consumed either way.
func BodyCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make(map[string]interface{})

		if r.Body != nil {
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxCachedBody))
			r.Body.Close()
			r.Body = http.NoBody
			if err == nil && len(raw) > 0 {
				if jsonErr := json.Unmarshal(raw, &body); jsonErr != nil {
					body = make(map[string]interface{})
				}
			}
		}

		ctx := contextkeys.WithBody(r.Context(), body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CachedBody returns the parsed request body cached by BodyCache, or an empty
// object when the middleware did not run
func CachedBody(r *http.Request) map[string]interface{} {
	if body := contextkeys.GetBody(r.Context()); body != nil {
		return body
	}
	return make(map[string]interface{})
}
