package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"billdash/internal/audit"
	"billdash/internal/mockbackend/service"
	"billdash/internal/models"
	dErrors "billdash/pkg/domain-errors"
	"billdash/pkg/platform/httputil"
	"billdash/pkg/platform/middleware/admin"
	"billdash/pkg/requestcontext"
)

// Service defines the billing operations the handler exposes.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Tenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	Usage(ctx context.Context, tenantID string) (*models.UsageSnapshot, error)
	UsageHistory(ctx context.Context, tenantID string) (*models.UsageHistory, error)
	DemoCall(ctx context.Context, tenantID string) (*service.DemoData, error)
	CalculateInvoice(ctx context.Context, tenantID string) (*models.InvoiceSummary, error)
	Invoices(ctx context.Context, tenantID string) (*models.InvoiceList, error)
	AuditTrail(ctx context.Context, tenantID string) (*audit.Trail, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts routes that need an authenticated identity.
// The caller installs the auth middleware on r.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/tenant", h.HandleTenant)
	r.Get("/usage", h.HandleUsage)
	r.Get("/usage/history", h.HandleUsageHistory)
	r.Get("/demo/data", h.HandleDemoData)
	r.Get("/billing/invoices", h.HandleInvoices)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(h.logger))
		r.Post("/billing/calculate", h.HandleCalculateInvoice)
		r.Get("/audit/events", h.HandleAuditTrail)
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.Register(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "register failed", err)
		return
	}
	httputil.WriteData(w, http.StatusCreated, resp)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.Login(ctx, *req)
	if err != nil {
		h.fail(ctx, w, "login failed", err)
		return
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

func (h *Handler) HandleTenant(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "get tenant failed", h.service.Tenant)
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "get usage failed", h.service.Usage)
}

func (h *Handler) HandleUsageHistory(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "get usage history failed", h.service.UsageHistory)
}

func (h *Handler) HandleDemoData(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "demo call refused", h.service.DemoCall)
}

func (h *Handler) HandleInvoices(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "list invoices failed", h.service.Invoices)
}

func (h *Handler) HandleCalculateInvoice(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "calculate invoice failed", h.service.CalculateInvoice)
}

func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	serveTenantScoped(h, w, r, "list audit events failed", h.service.AuditTrail)
}

// serveTenantScoped runs fn for the caller's tenant and writes its result.
func serveTenantScoped[T any](h *Handler, w http.ResponseWriter, r *http.Request, failMsg string, fn func(context.Context, string) (*T, error)) {
	ctx := r.Context()
	identity, ok := requestcontext.GetIdentity(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "identity missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, dErrors.New(dErrors.CodeAuth, "No token provided"))
		return
	}

	out, err := fn(ctx, identity.TenantID)
	if err != nil {
		h.fail(ctx, w, failMsg, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, out)
}

// fail logs client mistakes at warn and everything else at error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelError
	switch dErrors.Classify(err) {
	case dErrors.CodeValidation, dErrors.CodeAuth, dErrors.CodePermission, dErrors.CodeRateLimit, dErrors.CodeNotFound:
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	httputil.WriteError(w, err)
}
