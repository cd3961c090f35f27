package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks successful GET responses as publicly cacheable for
// maxAge seconds. Error responses are sent with no-store.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", maxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			rec := newStatusRecorder(w)
			rec.beforeHeader = func(status int, h http.Header) {
				if status < http.StatusBadRequest {
					h.Set("Cache-Control", value)
				} else {
					h.Set("Cache-Control", "no-store")
				}
			}
			next.ServeHTTP(rec, r)
		})
	}
}
