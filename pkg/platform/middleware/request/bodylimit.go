package request

import (
	"net/http"

	"billdash/pkg/platform/httputil"
)

// BodyLimit caps request bodies at maxBytes. Bodies that declare a larger
// Content-Length are refused with 413 up front; streamed bodies are cut off
// by http.MaxBytesReader and surface as a decode failure in the handler.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httputil.WriteMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
