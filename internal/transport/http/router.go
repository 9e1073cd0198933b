package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"billdash/internal/mockbackend/handler"
	"billdash/internal/platform/health"
	"billdash/pkg/platform/middleware/auth"
	"billdash/pkg/platform/middleware/metadata"
	request "billdash/pkg/platform/middleware/request"
	"billdash/pkg/platform/middleware/requesttime"
)

// ServiceName names the server span emitted for every request.
const ServiceName = "billdash-mock-backend"

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// RouterDeps collects what NewRouter wires together. Gatherer, Metrics,
// Clock and TracerProvider are optional.
type RouterDeps struct {
	Handler        *handler.Handler
	Validator      auth.JWTValidator
	Health         *health.Handler
	Gatherer       prometheus.Gatherer
	Metrics        *request.Metrics
	Clock          func() time.Time
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
	// AuthLimit throttles the public sign-in routes when set.
	AuthLimit func(http.Handler) http.Handler
}

// NewRouter mounts the billing API under /api next to the health and
// metrics endpoints, and wraps everything in an OpenTelemetry server span.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(metadata.Config{}).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(requesttime.Middleware(d.Clock))
	r.Use(request.LatencyMiddleware(d.Metrics))

	d.Health.Register(r)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(request.Timeout(requestTimeout))
		r.Use(request.ContentTypeJSON)
		r.Use(request.BodyLimit(maxBodyBytes))

		r.Group(func(r chi.Router) {
			if d.AuthLimit != nil {
				r.Use(d.AuthLimit)
			}
			d.Handler.RegisterPublic(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.Validator, d.Logger))
			d.Handler.RegisterProtected(r)
		})
	})

	var opts []otelhttp.Option
	if d.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(d.TracerProvider))
	}
	return otelhttp.NewHandler(r, ServiceName, opts...)
}
