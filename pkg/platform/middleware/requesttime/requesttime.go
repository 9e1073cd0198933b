// Package requesttime pins a single "now" per request so usage months and
// timestamps written while serving it agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"billdash/pkg/requestcontext"
)

// Middleware stores clock() in the request context. A nil clock uses time.Now.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
