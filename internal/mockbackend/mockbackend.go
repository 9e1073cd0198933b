// Package mockbackend assembles an in-process billing API for local use and
// tests: in-memory store, JWT auth, metered demo endpoint and invoicing.
package mockbackend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"billdash/internal/audit"
	jwttoken "billdash/internal/jwt_token"
	"billdash/internal/mockbackend/handler"
	mockmetrics "billdash/internal/mockbackend/metrics"
	"billdash/internal/mockbackend/service"
	"billdash/internal/mockbackend/store"
	"billdash/internal/models"
	"billdash/internal/platform/health"
	"billdash/internal/ratelimit"
	httptransport "billdash/internal/transport/http"
	request "billdash/pkg/platform/middleware/request"
	"billdash/pkg/requestcontext"
)

// TokenIssuer is the iss claim on every token the mock signs.
const TokenIssuer = "billdash-mock"

// Demo accounts created by SeedDemo.
const (
	DemoAdminEmail  = "admin@acme.test"
	DemoMemberEmail = "member@acme.test"
	DemoPassword    = "password123"
	DemoTenantName  = "Acme Corp"
)

type Config struct {
	SigningKey   string
	MonthlyLimit int64
	TokenTTL     time.Duration
	BcryptCost   int
	Logger       *slog.Logger
	// Registry receives server metrics and backs /metrics. Nil disables both.
	Registry       *prometheus.Registry
	Clock          func() time.Time
	TracerProvider trace.TracerProvider
	// AuditSink, when set, receives a copy of every audit event.
	AuditSink audit.Sink
	// ReadinessChecks are added to /health/ready next to the store check.
	ReadinessChecks map[string]health.CheckFunc
	// AuthRateLimit caps register and login calls per client address per
	// AuthRateWindow. Zero disables the limit.
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// App is a wired mock backend.
type App struct {
	Service *service.Service
	Store   *store.InMemory
	Tokens  *jwttoken.JWTService
	Audit   *audit.Publisher
	// Limiter is nil unless AuthRateLimit is set.
	Limiter *ratelimit.InMemoryLimiter
	Router  http.Handler
	clock   func() time.Time
}

func New(cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	st := store.NewInMemory()
	auditOpts := []audit.PublisherOption{
		audit.WithClock(clock),
		audit.WithPublisherLogger(logger),
	}
	if cfg.AuditSink != nil {
		auditOpts = append(auditOpts, audit.WithSink(cfg.AuditSink, 256))
	}
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), auditOpts...)
	tokens := jwttoken.NewJWTService(cfg.SigningKey, TokenIssuer, cfg.TokenTTL)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMonthlyLimit(cfg.MonthlyLimit),
		service.WithAudit(auditor),
	}
	if cfg.BcryptCost > 0 {
		opts = append(opts, service.WithBcryptCost(cfg.BcryptCost))
	}
	deps := httptransport.RouterDeps{
		Validator:      jwttoken.NewJWTServiceAdapter(tokens),
		Health:         health.New(),
		Clock:          clock,
		TracerProvider: cfg.TracerProvider,
		Logger:         logger,
	}
	if cfg.Registry != nil {
		opts = append(opts, service.WithMetrics(mockmetrics.New(cfg.Registry)))
		deps.Gatherer = cfg.Registry
		deps.Metrics = request.NewMetrics(cfg.Registry)
	}

	var limiter *ratelimit.InMemoryLimiter
	if cfg.AuthRateLimit > 0 {
		window := cfg.AuthRateWindow
		if window <= 0 {
			window = time.Minute
		}
		limiter = ratelimit.NewInMemoryLimiter(ratelimit.WithClock(clock))
		deps.AuthLimit = ratelimit.NewMiddleware(limiter, cfg.AuthRateLimit, window, logger).Handler
	}

	svc := service.New(st, tokens, opts...)
	deps.Handler = handler.New(svc, logger)
	deps.Health.RegisterCheck("store", st.Ping)
	for name, check := range cfg.ReadinessChecks {
		deps.Health.RegisterCheck(name, check)
	}

	return &App{
		Service: svc,
		Store:   st,
		Tokens:  tokens,
		Audit:   auditor,
		Limiter: limiter,
		Router:  httptransport.NewRouter(deps),
		clock:   clock,
	}
}

// Close drains pending audit forwarding.
func (a *App) Close() {
	a.Audit.Close()
}

// SeedDemo creates a tenant with an admin and a member account and some
// usage history, so a fresh mock has something to show.
func (a *App) SeedDemo(ctx context.Context) error {
	now := a.clock()
	ctx = requestcontext.WithTime(ctx, now)

	resp, err := a.Service.Register(ctx, models.RegisterRequest{
		Email:      DemoAdminEmail,
		Password:   DemoPassword,
		TenantName: DemoTenantName,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	tenantID := resp.Tenant.ID

	if _, err := a.Service.AddUser(ctx, tenantID, DemoMemberEmail, DemoPassword, models.RoleUser); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	limit := a.Service.MonthlyLimit()
	history := []int64{limit * 42 / 100, limit * 87 / 100, limit * 15 / 100}
	for i, calls := range history {
		month := firstOfMonth.AddDate(0, -i, 0).Format(service.MonthFormat)
		if err := a.Service.SeedUsage(ctx, tenantID, month, calls); err != nil {
			return fmt.Errorf("seed usage %s: %w", month, err)
		}
	}
	return nil
}
