package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"billdash/internal/audit"
	jwttoken "billdash/internal/jwt_token"
	"billdash/internal/mockbackend/service"
	"billdash/internal/mockbackend/store"
	"billdash/internal/models"
	"billdash/pkg/platform/middleware/auth"
	"billdash/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	svc    *service.Service
	tokens *jwttoken.JWTService
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.tokens = jwttoken.NewJWTService("test-key", "billdash-mock", time.Hour)
	s.svc = service.New(store.NewInMemory(), s.tokens,
		service.WithMonthlyLimit(2),
		service.WithBcryptCost(bcrypt.MinCost),
		service.WithAudit(audit.NewPublisher(audit.NewInMemoryStore())),
	)

	h := New(s.svc, logger)
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterPublic(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(jwttoken.NewJWTServiceAdapter(s.tokens), logger))
			h.RegisterProtected(r)
		})
	})
	s.router = r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (s *HandlerSuite) do(method, path, token, body string) (int, envelope) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *HandlerSuite) registerAdmin() models.AuthResponse {
	code, env := s.do(http.MethodPost, "/api/auth/register", "", `{"email":"Admin@Acme.test","password":"secret1","tenantName":" Acme "}`)
	s.Require().Equal(http.StatusCreated, code)
	var resp models.AuthResponse
	s.Require().NoError(json.Unmarshal(env.Data, &resp))
	return resp
}

// =============================================================================
// Public routes
// =============================================================================

func (s *HandlerSuite) TestRegisterAndLogin() {
	resp := s.registerAdmin()
	s.Equal("admin@acme.test", resp.User.Email)
	s.Equal("Acme", resp.Tenant.Name)

	s.Run("login with normalized email", func() {
		code, env := s.do(http.MethodPost, "/api/auth/login", "", `{"email":"ADMIN@acme.test","password":"secret1"}`)
		s.Equal(http.StatusOK, code)
		s.True(env.Success)
	})

	s.Run("bad credentials", func() {
		code, env := s.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@acme.test","password":"wrong"}`)
		s.Equal(http.StatusUnauthorized, code)
		s.Equal("Invalid credentials", env.Message)
	})

	s.Run("duplicate registration", func() {
		code, env := s.do(http.MethodPost, "/api/auth/register", "", `{"email":"admin@acme.test","password":"secret1","tenantName":"Again"}`)
		s.Equal(http.StatusBadRequest, code)
		s.Equal("User already exists", env.Message)
	})

	s.Run("invalid payload", func() {
		code, env := s.do(http.MethodPost, "/api/auth/register", "", `{"email":"not-an-email","password":"secret1","tenantName":"Acme"}`)
		s.Equal(http.StatusBadRequest, code)
		s.Equal("email must be a valid email", env.Message)
	})
}

// =============================================================================
// Protected routes
// =============================================================================

func (s *HandlerSuite) TestProtectedRoutesNeedToken() {
	for _, path := range []string{"/api/tenant", "/api/usage", "/api/usage/history", "/api/billing/invoices", "/api/demo/data"} {
		code, env := s.do(http.MethodGet, path, "", "")
		s.Equal(http.StatusUnauthorized, code, path)
		s.False(env.Success)
	}
}

func (s *HandlerSuite) TestMeteringFlow() {
	token := s.registerAdmin().Token

	code, _ := s.do(http.MethodGet, "/api/demo/data", token, "")
	s.Equal(http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/demo/data", token, "")
	s.Equal(http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/demo/data", token, "")
	s.Equal(http.StatusTooManyRequests, code)
	s.Equal("Monthly API limit exceeded", env.Message)

	code, env = s.do(http.MethodGet, "/api/usage", token, "")
	s.Require().Equal(http.StatusOK, code)
	var snap models.UsageSnapshot
	s.Require().NoError(json.Unmarshal(env.Data, &snap))
	s.Equal(int64(2), snap.Used)
	s.Equal("100.00", snap.PercentageUsed.String())
}

func (s *HandlerSuite) TestInvoiceGeneration() {
	admin := s.registerAdmin()

	s.Run("admin without usage gets a 400", func() {
		code, _ := s.do(http.MethodPost, "/api/billing/calculate", admin.Token, `{}`)
		s.Equal(http.StatusBadRequest, code)
	})

	s.Run("admin with usage gets an invoice", func() {
		code, _ := s.do(http.MethodGet, "/api/demo/data", admin.Token, "")
		s.Require().Equal(http.StatusOK, code)

		code, env := s.do(http.MethodPost, "/api/billing/calculate", admin.Token, `{}`)
		s.Require().Equal(http.StatusOK, code)
		var inv models.InvoiceSummary
		s.Require().NoError(json.Unmarshal(env.Data, &inv))
		s.Equal(int64(1), inv.TotalCalls)

		code, env = s.do(http.MethodGet, "/api/billing/invoices", admin.Token, "")
		s.Require().Equal(http.StatusOK, code)
		var list models.InvoiceList
		s.Require().NoError(json.Unmarshal(env.Data, &list))
		s.Len(list.Invoices, 1)
	})

	s.Run("members are forbidden", func() {
		ctx := requestcontext.WithTime(context.Background(), time.Now())
		member, err := s.svc.AddUser(ctx, admin.Tenant.ID, "dev@acme.test", "secret1", models.RoleUser)
		s.Require().NoError(err)
		token, err := s.tokens.GenerateAccessToken(ctx, *member)
		s.Require().NoError(err)

		code, env := s.do(http.MethodPost, "/api/billing/calculate", token, `{}`)
		s.Equal(http.StatusForbidden, code)
		s.Equal("Admin access required", env.Message)
	})
}

func (s *HandlerSuite) TestTenant() {
	resp := s.registerAdmin()
	code, env := s.do(http.MethodGet, "/api/tenant", resp.Token, "")
	s.Require().Equal(http.StatusOK, code)
	var tenant models.Tenant
	s.Require().NoError(json.Unmarshal(env.Data, &tenant))
	s.Equal(resp.Tenant.ID, tenant.ID)
	s.Equal("free", tenant.Plan)
}

func (s *HandlerSuite) TestAuditTrail() {
	admin := s.registerAdmin()
	code, _ := s.do(http.MethodPost, "/api/auth/login", "", `{"email":"admin@acme.test","password":"wrong"}`)
	s.Require().Equal(http.StatusUnauthorized, code)

	s.Run("admin reads the trail newest first", func() {
		code, env := s.do(http.MethodGet, "/api/audit/events", admin.Token, "")
		s.Require().Equal(http.StatusOK, code)
		var trail audit.Trail
		s.Require().NoError(json.Unmarshal(env.Data, &trail))
		s.Require().Len(trail.Events, 2)
		s.Equal(audit.ActionLoginFailed, trail.Events[0].Action)
		s.Equal(audit.ActionTenantRegistered, trail.Events[1].Action)
		s.Equal(admin.Tenant.ID, trail.Events[1].TenantID)
	})

	s.Run("members are forbidden", func() {
		ctx := requestcontext.WithTime(context.Background(), time.Now())
		member, err := s.svc.AddUser(ctx, admin.Tenant.ID, "viewer@acme.test", "secret1", models.RoleUser)
		s.Require().NoError(err)
		token, err := s.tokens.GenerateAccessToken(ctx, *member)
		s.Require().NoError(err)

		code, _ := s.do(http.MethodGet, "/api/audit/events", token, "")
		s.Equal(http.StatusForbidden, code)
	})
}
