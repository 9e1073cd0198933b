// Package dashboard holds the page controllers of the billing dashboard.
// Controllers turn API results into view models plus at most one inline
// alert; they never print or navigate.
package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"

	"billdash/internal/models"
	"billdash/internal/session"
)

// API is the subset of the billing client the controllers call.
type API interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	GetTenant(ctx context.Context) (*models.Tenant, error)
	GetUsage(ctx context.Context) (*models.UsageSnapshot, error)
	GetUsageHistory(ctx context.Context) ([]models.UsageRecord, error)
	CalculateInvoice(ctx context.Context) (*models.InvoiceSummary, error)
	GetInvoices(ctx context.Context) ([]models.Invoice, error)
	GetDemoData(ctx context.Context) (json.RawMessage, error)
}

// Sessions is the session state the controllers read and write.
type Sessions interface {
	Save(ctx context.Context, token string, user *models.User, tenant *models.Tenant) error
	Read(ctx context.Context) (session.Session, error)
	Clear(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
}

// Pages bundles every controller over one API client and session.
type Pages struct {
	Landing   *Landing
	Auth      *Auth
	Dashboard *Dashboard
	Usage     *Usage
	Billing   *Billing
}

type deps struct {
	api      API
	sessions Sessions
	logger   *slog.Logger
}

// Option configures the controllers.
type Option func(*deps)

func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New wires all page controllers.
func New(api API, sessions Sessions, opts ...Option) *Pages {
	d := &deps{
		api:      api,
		sessions: sessions,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return &Pages{
		Landing:   &Landing{deps: d},
		Auth:      &Auth{deps: d},
		Dashboard: &Dashboard{deps: d},
		Usage:     &Usage{deps: d},
		Billing:   &Billing{deps: d},
	}
}
