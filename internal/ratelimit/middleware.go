package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"billdash/internal/platform/privacy"
	"billdash/pkg/platform/httputil"
	"billdash/pkg/requestcontext"
)

// MsgTooManyRequests is returned with every 429 from this middleware.
const MsgTooManyRequests = "Too many requests from this IP address. Please try again later."

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

type Middleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// NewMiddleware allows limit requests per client address per window.
func NewMiddleware(limiter Limiter, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, limit: limit, window: window, logger: logger}
}

// Handler rejects callers over the limit with 429. Limiter failures let the
// request through.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)

		result, err := m.limiter.Allow(ctx, "ip:"+ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check IP rate limit", "error", err, "ip_prefix", privacy.AnonymizeIP(ip))
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"ip_prefix", privacy.AnonymizeIP(ip),
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteMessage(w, http.StatusTooManyRequests, MsgTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
