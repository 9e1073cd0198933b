// Package service implements the mock billing API: registration, login,
// metered demo calls and invoice generation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"billdash/internal/audit"
	mockmetrics "billdash/internal/mockbackend/metrics"
	"billdash/internal/mockbackend/store"
	"billdash/internal/models"
	"billdash/internal/sentinel"
	dErrors "billdash/pkg/domain-errors"
	platformsync "billdash/pkg/platform/sync"
	"billdash/pkg/requestcontext"
	"billdash/pkg/secrets"
)

// MonthFormat keys usage and invoices by calendar month.
const MonthFormat = "2006-01"

// DefaultMonthlyLimit is the quota of the free plan.
const DefaultMonthlyLimit int64 = 100_000

const defaultPlan = "free"

// AuditTrailLimit caps the events returned by AuditTrail.
const AuditTrailLimit = 100

type Store interface {
	CreateTenantWithUser(ctx context.Context, tenant models.Tenant, user store.UserRecord) error
	CreateUser(ctx context.Context, user store.UserRecord) error
	FindUserByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	FindTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	Usage(ctx context.Context, tenantID, month string) (int64, error)
	IncrementUsageWithin(ctx context.Context, tenantID, month string, limit int64, at time.Time) (int64, bool, error)
	SetUsage(ctx context.Context, tenantID, month string, calls int64, at time.Time) error
	UsageHistory(ctx context.Context, tenantID string) ([]models.UsageRecord, error)
	CreateInvoiceIfAbsent(ctx context.Context, tenantID string, inv models.Invoice) error
	ListInvoices(ctx context.Context, tenantID string) ([]models.Invoice, error)
}

type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, user models.User) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
	List(ctx context.Context, tenantID string, limit int) ([]audit.Event, error)
}

// DemoData is the payload of a metered demo call.
type DemoData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Used      int64     `json:"used"`
	Limit     int64     `json:"limit"`
}

type Service struct {
	store        Store
	tokens       TokenIssuer
	monthlyLimit int64
	bcryptCost   int
	logger       *slog.Logger
	metrics      *mockmetrics.Metrics
	auditor      AuditPublisher
	// billing keeps metered calls and invoice generation of one tenant apart,
	// so an invoice totals exactly the usage seen when it was created.
	billing *platformsync.ShardedMutex
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *mockmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAudit records security and billing events to p.
func WithAudit(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithMonthlyLimit sets the per-tenant monthly quota for metered calls.
func WithMonthlyLimit(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.monthlyLimit = limit
		}
	}
}

// WithBcryptCost lowers hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(st Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:        st,
		tokens:       tokens,
		monthlyLimit: DefaultMonthlyLimit,
		bcryptCost:   bcrypt.DefaultCost,
		logger:       slog.New(slog.DiscardHandler),
		billing:      platformsync.NewShardedMutex(platformsync.DefaultShards),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MonthlyLimit reports the quota applied to every tenant.
func (s *Service) MonthlyLimit() int64 {
	return s.monthlyLimit
}

// Register creates a tenant and its admin user and signs them in.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	now := requestcontext.Now(ctx)
	hash, err := secrets.Hash(req.Password, s.bcryptCost)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Registration failed")
	}

	tenant := models.Tenant{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.TenantName),
		Plan:      defaultPlan,
		Status:    "active",
		CreatedAt: &now,
	}
	user := store.UserRecord{
		User: models.User{
			ID:       uuid.NewString(),
			Email:    req.Email,
			Role:     models.RoleAdmin,
			TenantID: tenant.ID,
		},
		PasswordHash: hash,
		CreatedAt:    now,
	}

	if err := s.store.CreateTenantWithUser(ctx, tenant, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeValidation, "User already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Registration failed")
	}
	s.metrics.IncrementTenantRegistered()
	s.logger.InfoContext(ctx, "tenant registered",
		"tenant_id", tenant.ID,
		"user_id", user.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.ActionTenantRegistered, tenant.ID, user.ID, map[string]string{"tenant_name": tenant.Name})

	return s.authResponse(ctx, user.User, tenant)
}

// AddUser creates a non-admin member of an existing tenant.
func (s *Service) AddUser(ctx context.Context, tenantID, email, password, role string) (*models.User, error) {
	hash, err := secrets.Hash(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	rec := store.UserRecord{
		User:         models.User{ID: uuid.NewString(), Email: email, Role: role, TenantID: tenantID},
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.CreateUser(ctx, rec); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionUserAdded, tenantID, rec.ID, map[string]string{"role": role})
	return &rec.User, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	invalid := dErrors.New(dErrors.CodeAuth, "Invalid credentials")

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		s.metrics.IncrementLogin(false)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Login failed")
	}
	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		s.metrics.IncrementLogin(false)
		s.emit(ctx, audit.ActionLoginFailed, user.TenantID, user.ID, nil)
		if dErrors.HasCode(err, dErrors.CodeAuth) {
			return nil, invalid
		}
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Login failed")
	}

	tenant, err := s.store.FindTenant(ctx, user.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Login failed")
	}
	s.metrics.IncrementLogin(true)
	s.emit(ctx, audit.ActionLoginSucceeded, user.TenantID, user.ID, nil)
	return s.authResponse(ctx, user.User, *tenant)
}

func (s *Service) authResponse(ctx context.Context, user models.User, tenant models.Tenant) (*models.AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(ctx, user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeServer, "Could not issue token")
	}
	return &models.AuthResponse{Token: token, User: &user, Tenant: &tenant}, nil
}

func (s *Service) Tenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := s.store.FindTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Tenant not found")
		}
		return nil, err
	}
	return tenant, nil
}

// Usage reports the current month's consumption against the quota.
func (s *Service) Usage(ctx context.Context, tenantID string) (*models.UsageSnapshot, error) {
	month := requestcontext.Now(ctx).Format(MonthFormat)
	used, err := s.store.Usage(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}
	snap := s.snapshot(month, used)
	return &snap, nil
}

func (s *Service) snapshot(month string, used int64) models.UsageSnapshot {
	return models.UsageSnapshot{
		Month:          month,
		Used:           used,
		Limit:          s.monthlyLimit,
		Remaining:      max(s.monthlyLimit-used, 0),
		PercentageUsed: models.NewDecimal(float64(used)/float64(s.monthlyLimit)*100, 2),
	}
}

func (s *Service) UsageHistory(ctx context.Context, tenantID string) (*models.UsageHistory, error) {
	history, err := s.store.UsageHistory(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &models.UsageHistory{History: history}, nil
}

// DemoCall is the metered endpoint: each call consumes one unit of quota and
// fails with a rate-limit error once the month is exhausted.
func (s *Service) DemoCall(ctx context.Context, tenantID string) (*DemoData, error) {
	now := requestcontext.Now(ctx)
	s.billing.Lock(tenantID)
	used, recorded, err := s.store.IncrementUsageWithin(ctx, tenantID, now.Format(MonthFormat), s.monthlyLimit, now)
	s.billing.Unlock(tenantID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementMeteredCall(recorded)
	if !recorded {
		s.logger.InfoContext(ctx, "monthly limit reached",
			"tenant_id", tenantID,
			"used", used,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, audit.ActionQuotaExceeded, tenantID, callerID(ctx), map[string]string{"used": strconv.FormatInt(used, 10)})
		return nil, dErrors.New(dErrors.CodeRateLimit, "Monthly API limit exceeded")
	}
	return &DemoData{
		Message:   "This is demo data from a metered endpoint",
		Timestamp: now,
		Used:      used,
		Limit:     s.monthlyLimit,
	}, nil
}

// CalculateInvoice bills the current month once. A month without usage or
// with an existing invoice is refused.
func (s *Service) CalculateInvoice(ctx context.Context, tenantID string) (*models.InvoiceSummary, error) {
	now := requestcontext.Now(ctx)
	month := now.Format(MonthFormat)

	s.billing.Lock(tenantID)
	defer s.billing.Unlock(tenantID)

	calls, err := s.store.Usage(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}
	if calls == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "No usage recorded for this month")
	}

	breakdown, amount := CalculateCharges(calls)
	stripeSuffix, err := secrets.RandomHex(7)
	if err != nil {
		return nil, err
	}
	status := models.InvoiceStatusPending
	if amount.Value == 0 {
		status = models.InvoiceStatusPaid
	}
	inv := models.Invoice{
		ID:              uuid.NewString(),
		Month:           month,
		TotalCalls:      calls,
		AmountDue:       amount,
		Status:          status,
		StripeInvoiceID: "in_mock_" + stripeSuffix,
		CreatedAt:       &now,
	}
	if err := s.store.CreateInvoiceIfAbsent(ctx, tenantID, inv); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeValidation, "Invoice already generated for this month")
		}
		return nil, err
	}
	s.metrics.IncrementInvoiceGenerated()
	s.logger.InfoContext(ctx, "invoice generated",
		"tenant_id", tenantID,
		"month", month,
		"total_calls", calls,
		"amount_due", amount.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.ActionInvoiceGenerated, tenantID, callerID(ctx), map[string]string{
		"month":      month,
		"amount_due": amount.String(),
	})
	return &models.InvoiceSummary{Invoice: inv, Breakdown: breakdown}, nil
}

func (s *Service) Invoices(ctx context.Context, tenantID string) (*models.InvoiceList, error) {
	invoices, err := s.store.ListInvoices(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &models.InvoiceList{Invoices: invoices}, nil
}

// SeedUsage overwrites a tenant's call count for a month.
func (s *Service) SeedUsage(ctx context.Context, tenantID, month string, calls int64) error {
	return s.store.SetUsage(ctx, tenantID, month, calls, requestcontext.Now(ctx))
}

// AuditTrail lists the tenant's most recent audit events.
func (s *Service) AuditTrail(ctx context.Context, tenantID string) (*audit.Trail, error) {
	if s.auditor == nil {
		return &audit.Trail{Events: []audit.Event{}}, nil
	}
	events, err := s.auditor.List(ctx, tenantID, AuditTrailLimit)
	if err != nil {
		return nil, err
	}
	return &audit.Trail{Events: events}, nil
}

// emit records an audit event. Audit failures are logged, never returned.
func (s *Service) emit(ctx context.Context, action audit.Action, tenantID, userID string, details map[string]string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		RequestID: requestcontext.RequestID(ctx),
		Details:   details,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit event", "error", err, "action", action)
	}
}

func callerID(ctx context.Context) string {
	if identity, ok := requestcontext.GetIdentity(ctx); ok {
		return identity.UserID
	}
	return ""
}
