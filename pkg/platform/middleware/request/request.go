package request

import (
	"log/slog"
	"mime"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"billdash/internal/platform/privacy"
	"billdash/pkg/platform/httputil"
	"billdash/pkg/requestcontext"
)

// HeaderRequestID carries the correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

// MaxRequestIDLength bounds client-supplied request IDs.
const MaxRequestIDLength = 128

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Recovery recovers from panics and answers with a 500 envelope.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
						"method", r.Method,
						"request_id", requestcontext.RequestID(ctx),
					)
					httputil.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID propagates a valid client-supplied X-Request-ID or generates one.
// Unsafe IDs are replaced so they never reach the logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	return validRequestID.MatchString(id)
}

// Logger logs each request with its route, status, duration and client.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			// Health probes only matter when they fail.
			if r.URL.Path == "/health" && wrapped.statusCode < http.StatusInternalServerError {
				return
			}

			ctx := r.Context()
			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"client", requestcontext.Device(ctx),
				"client_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Timeout wraps the handler with a timeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"success":false,"message":"Request timeout"}`)
	}
}

// ContentTypeJSON rejects POST/PUT/PATCH bodies that declare a non-JSON type.
// A missing Content-Type is accepted.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
					httputil.WriteMessage(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// LatencyMiddleware records latency per chi route pattern, method and status
// class. Paths with no route share the "unmatched" label.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.InFlight.Inc()
			defer m.InFlight.Dec()

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.EndpointLatency.
				WithLabelValues(route, r.Method, statusClass(wrapped.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}
