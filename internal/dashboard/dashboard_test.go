package dashboard

//go:generate mockgen -source=dashboard.go -destination=mocks/mocks.go -package=mocks API,Sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"billdash/internal/apiclient"
	"billdash/internal/dashboard/mocks"
	"billdash/internal/guard"
	"billdash/internal/models"
	"billdash/internal/session"
	"billdash/internal/session/store/memory"
)

// =============================================================================
// Page Controller Test Suite
// =============================================================================
// Controllers translate API outcomes into inline alerts. Tests pin the exact
// user-facing messages and the guard behaviour around every protected page.

type PagesSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	api      *mocks.MockAPI
	sessions *session.Manager
	pages    *Pages
}

func TestPagesSuite(t *testing.T) {
	suite.Run(t, new(PagesSuite))
}

func (s *PagesSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.api = mocks.NewMockAPI(s.ctrl)
	s.sessions = session.NewManager(memory.New(), nil)
	s.pages = New(s.api, s.sessions)
}

func (s *PagesSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PagesSuite) signIn(role string) {
	s.Require().NoError(s.sessions.Save(s.ctx, "tok1",
		&models.User{ID: "u-1", Email: "a@b.com", Role: role},
		&models.Tenant{ID: "t-1", Name: "Acme", Plan: "pro"}))
}

func statusErr(status int, message string) error {
	return &apiclient.Error{StatusCode: status, Message: message, Method: http.MethodGet, Path: "/x"}
}

// =============================================================================
// Auth
// =============================================================================

func (s *PagesSuite) TestRegister() {
	req := models.RegisterRequest{Email: "a@b.com", Password: "secret1", TenantName: "Acme"}

	s.Run("success stores the session and redirects to the dashboard", func() {
		s.api.EXPECT().Register(s.ctx, req).Return(&models.AuthResponse{
			Token:  "tok1",
			User:   &models.User{Email: "a@b.com", Role: models.RoleAdmin},
			Tenant: &models.Tenant{Name: "Acme"},
		}, nil)

		result := s.pages.Auth.Register(s.ctx, req)
		s.Nil(result.Alert)
		s.Equal(guard.Decision{Action: guard.Redirect, Location: guard.RouteDashboard}, result.Decision)

		sess, err := s.sessions.Read(s.ctx)
		s.Require().NoError(err)
		s.Equal("tok1", sess.Token)
		s.True(sess.IsAdmin())
	})

	s.Run("server message is shown when present", func() {
		s.api.EXPECT().Register(s.ctx, req).Return(nil, statusErr(http.StatusBadRequest, "Email already registered"))

		result := s.pages.Auth.Register(s.ctx, req)
		s.Equal(guard.Proceed, result.Decision.Action)
		s.Equal(&Alert{Level: LevelDanger, Text: "Email already registered"}, result.Alert)
	})

	s.Run("fallback message when the server gave none", func() {
		s.api.EXPECT().Register(s.ctx, req).Return(nil, &apiclient.Error{Err: errors.New("connection refused")})

		result := s.pages.Auth.Register(s.ctx, req)
		s.Equal(MsgRegistrationFailed, result.Alert.Text)
	})
}

func (s *PagesSuite) TestLoginFailureFallback() {
	req := models.LoginRequest{Email: "a@b.com", Password: "wrong"}
	s.api.EXPECT().Login(s.ctx, req).Return(nil, statusErr(http.StatusInternalServerError, ""))

	result := s.pages.Auth.Login(s.ctx, req)
	s.Equal(MsgLoginFailed, result.Alert.Text)
	s.False(s.sessions.IsAuthenticated(s.ctx))
}

func (s *PagesSuite) TestLoginSessionSaveFailure() {
	sessions := mocks.NewMockSessions(s.ctrl)
	pages := New(s.api, sessions)
	req := models.LoginRequest{Email: "a@b.com", Password: "secret1"}

	s.api.EXPECT().Login(s.ctx, req).Return(&models.AuthResponse{Token: "tok1"}, nil)
	sessions.EXPECT().Save(s.ctx, "tok1", gomock.Nil(), gomock.Nil()).Return(errors.New("disk full"))

	result := pages.Auth.Login(s.ctx, req)
	s.Equal(guard.Proceed, result.Decision.Action)
	s.Equal(MsgLoginFailed, result.Alert.Text)
}

func (s *PagesSuite) TestLogout() {
	s.signIn(models.RoleUser)

	result, err := s.pages.Auth.Logout(s.ctx)
	s.Require().NoError(err)
	s.Equal(guard.Decision{Action: guard.Redirect, Location: guard.RouteLogin}, result.Decision)
	s.False(s.sessions.IsAuthenticated(s.ctx))

	_, err = s.pages.Auth.Logout(s.ctx)
	s.NoError(err)
}

// =============================================================================
// Guarded pages
// =============================================================================

func (s *PagesSuite) TestProtectedPagesRedirectWhenSignedOut() {
	login := guard.Decision{Action: guard.Redirect, Location: guard.RouteLogin}

	s.Equal(login, s.pages.Dashboard.Load(s.ctx).Decision)
	s.Equal(login, s.pages.Dashboard.TestCall(s.ctx).Decision)
	s.Equal(login, s.pages.Usage.Load(s.ctx).Decision)
	s.Equal(login, s.pages.Billing.Load(s.ctx).Decision)
	s.Equal(login, s.pages.Billing.GenerateInvoice(s.ctx).Decision)
}

func (s *PagesSuite) TestLanding() {
	s.Run("signed out offers sign in", func() {
		view := s.pages.Landing.Load(s.ctx)
		s.False(view.SignedIn)
		s.Equal("/register", view.Links[0].Route)
	})

	s.Run("signed in links to the app", func() {
		s.signIn(models.RoleUser)
		view := s.pages.Landing.Load(s.ctx)
		s.True(view.SignedIn)
		s.Equal("a@b.com", view.User.Email)
		s.Equal("/dashboard", view.Links[0].Route)
	})
}

// =============================================================================
// Dashboard
// =============================================================================

func (s *PagesSuite) TestDashboardLoad() {
	s.signIn(models.RoleAdmin)

	s.Run("both panels filled", func() {
		s.api.EXPECT().GetTenant(s.ctx).Return(&models.Tenant{Name: "Acme", Plan: "pro"}, nil)
		s.api.EXPECT().GetUsage(s.ctx).Return(&models.UsageSnapshot{
			Month: "2024-05", Used: 85000, Limit: 100000, Remaining: 15000,
			PercentageUsed: models.NewDecimal(85, 0),
		}, nil)

		view := s.pages.Dashboard.Load(s.ctx)
		s.True(view.Decision.Proceeds())
		s.Equal("Acme", view.Tenant.Name)
		s.Equal(int64(85000), view.Usage.Used)
		s.Equal(LevelDanger, view.UsageLevel())
		s.Equal("a@b.com", view.User.Email)
	})

	s.Run("a failed panel leaves the other intact", func() {
		s.api.EXPECT().GetTenant(s.ctx).Return(nil, statusErr(http.StatusInternalServerError, ""))
		s.api.EXPECT().GetUsage(s.ctx).Return(&models.UsageSnapshot{Month: "2024-05", PercentageUsed: models.NewDecimal(50, 0)}, nil)

		view := s.pages.Dashboard.Load(s.ctx)
		s.Nil(view.Tenant)
		s.Require().NotNil(view.Usage)
		s.Equal(LevelSuccess, view.UsageLevel())
	})
}

func (s *PagesSuite) TestTestCall() {
	s.signIn(models.RoleUser)

	s.Run("success refreshes usage", func() {
		gomock.InOrder(
			s.api.EXPECT().GetDemoData(s.ctx).Return(json.RawMessage(`{"message":"ok"}`), nil),
			s.api.EXPECT().GetUsage(s.ctx).Return(&models.UsageSnapshot{Used: 11}, nil),
		)

		result := s.pages.Dashboard.TestCall(s.ctx)
		s.Equal(&Alert{Level: LevelSuccess, Text: MsgTestCallSucceeded}, result.Alert)
		s.Equal(int64(11), result.Usage.Used)
	})

	s.Run("429 says the quota is exhausted", func() {
		s.api.EXPECT().GetDemoData(s.ctx).Return(nil, statusErr(http.StatusTooManyRequests, "Monthly API limit exceeded"))

		result := s.pages.Dashboard.TestCall(s.ctx)
		s.Equal(&Alert{Level: LevelDanger, Text: MsgRateLimitExceeded}, result.Alert)
		s.Nil(result.Usage)
	})

	s.Run("other failures are generic and distinct", func() {
		err := statusErr(http.StatusInternalServerError, "")
		s.api.EXPECT().GetDemoData(s.ctx).Return(nil, err)

		result := s.pages.Dashboard.TestCall(s.ctx)
		s.Equal(MsgTestCallFailed+"Request failed with status code 500", result.Alert.Text)
		s.NotEqual(MsgRateLimitExceeded, result.Alert.Text)
	})
}

// =============================================================================
// Usage
// =============================================================================

func (s *PagesSuite) TestUsageLoad() {
	s.signIn(models.RoleUser)

	s.Run("warning above the threshold", func() {
		s.api.EXPECT().GetUsage(s.ctx).Return(&models.UsageSnapshot{PercentageUsed: models.Decimal{Text: "85.50", Value: 85.5}}, nil)
		s.api.EXPECT().GetUsageHistory(s.ctx).Return([]models.UsageRecord{{Month: "2024-05", APICallCount: 85500}}, nil)

		view := s.pages.Usage.Load(s.ctx)
		s.Len(view.History, 1)
		s.Require().NotNil(view.Warning)
		s.Equal("Warning: You've used 85.50% of your monthly quota.", view.Warning.Text)
	})

	s.Run("exactly at the threshold is not flagged", func() {
		s.api.EXPECT().GetUsage(s.ctx).Return(&models.UsageSnapshot{PercentageUsed: models.NewDecimal(80, 0)}, nil)
		s.api.EXPECT().GetUsageHistory(s.ctx).Return(nil, statusErr(http.StatusInternalServerError, ""))

		view := s.pages.Usage.Load(s.ctx)
		s.Nil(view.Warning)
		s.Empty(view.History)
	})
}

// =============================================================================
// Billing
// =============================================================================

func (s *PagesSuite) TestBillingLoad() {
	s.Run("admin flag follows the stored role", func() {
		s.signIn(models.RoleAdmin)
		s.api.EXPECT().GetInvoices(s.ctx).Return([]models.Invoice{{ID: "inv-1", Status: models.InvoiceStatusPaid}}, nil)

		view := s.pages.Billing.Load(s.ctx)
		s.True(view.IsAdmin)
		s.Len(view.Invoices, 1)
		s.Equal(PricingTiers, view.Tiers)
	})

	s.Run("non-admin sees the list without the flag", func() {
		s.signIn(models.RoleUser)
		s.api.EXPECT().GetInvoices(s.ctx).Return(nil, nil)

		view := s.pages.Billing.Load(s.ctx)
		s.False(view.IsAdmin)
	})
}

func (s *PagesSuite) TestGenerateInvoice() {
	cases := []struct {
		name  string
		err   error
		alert *Alert
	}{
		{"success", nil, &Alert{Level: LevelSuccess, Text: MsgInvoiceGenerated}},
		{"403 means admins only", statusErr(http.StatusForbidden, "Admin access required"), &Alert{Level: LevelDanger, Text: MsgAdminsOnly}},
		{"400 shows the server message", statusErr(http.StatusBadRequest, "Invoice already exists for this month"), &Alert{Level: LevelDanger, Text: "Invoice already exists for this month"}},
		{"other statuses are generic", statusErr(http.StatusBadGateway, "upstream"), &Alert{Level: LevelDanger, Text: MsgInvoiceFailed}},
		{"network failure is generic", &apiclient.Error{Err: errors.New("connection refused")}, &Alert{Level: LevelDanger, Text: MsgInvoiceFailed}},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.signIn(models.RoleUser)
			s.api.EXPECT().GetInvoices(s.ctx).Return(nil, nil)
			if tc.err == nil {
				s.api.EXPECT().CalculateInvoice(s.ctx).Return(&models.InvoiceSummary{}, nil)
				s.api.EXPECT().GetInvoices(s.ctx).Return([]models.Invoice{{ID: "inv-2"}}, nil)
			} else {
				s.api.EXPECT().CalculateInvoice(s.ctx).Return(nil, tc.err)
			}

			view := s.pages.Billing.GenerateInvoice(s.ctx)
			s.Equal(tc.alert, view.Alert)
			if tc.err == nil {
				s.Len(view.Invoices, 1)
			}
		})
	}
}
