package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"billdash/internal/models"
	"billdash/internal/platform/metrics"
	domainerrors "billdash/pkg/domain-errors"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type ClientSuite struct {
	suite.Suite
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
	token    string
	metrics  *metrics.Metrics
	client   *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.requests = nil
	s.token = ""
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		s.mu.Unlock()
		s.handler(w, r)
	}))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.client = New(s.server.URL+"/api/",
		WithHTTPClient(s.server.Client()),
		WithTokenSource(TokenFunc(func(context.Context) string { return s.token })),
		WithMetrics(s.metrics),
	)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) lastRequest() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.requests)
	return s.requests[len(s.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *ClientSuite) TestBearerHeaderFollowsTokenSource() {
	ctx := context.Background()

	s.Run("absent token sends no authorization header", func() {
		s.token = ""
		_, err := s.client.GetUsage(ctx)
		s.Require().NoError(err)
		s.Empty(s.lastRequest().Header.Get("Authorization"))
	})

	s.Run("present token is attached to every call", func() {
		s.token = "tok1"
		calls := []func() error{
			func() error { _, err := s.client.GetTenant(ctx); return err },
			func() error { _, err := s.client.GetUsage(ctx); return err },
			func() error { _, err := s.client.GetUsageHistory(ctx); return err },
			func() error { _, err := s.client.GetInvoices(ctx); return err },
			func() error { _, err := s.client.CalculateInvoice(ctx); return err },
			func() error { _, err := s.client.GetDemoData(ctx); return err },
		}
		for _, call := range calls {
			s.Require().NoError(call())
			s.Equal("Bearer tok1", s.lastRequest().Header.Get("Authorization"))
		}
	})

	s.Run("token change applies to the next request", func() {
		s.token = "tok2"
		_, err := s.client.GetUsage(ctx)
		s.Require().NoError(err)
		s.Equal("Bearer tok2", s.lastRequest().Header.Get("Authorization"))

		s.token = ""
		_, err = s.client.GetUsage(ctx)
		s.Require().NoError(err)
		s.Empty(s.lastRequest().Header.Get("Authorization"))
	})
}

func (s *ClientSuite) TestStandardHeaders() {
	_, err := s.client.GetTenant(context.Background())
	s.Require().NoError(err)

	req := s.lastRequest()
	s.Equal("/api/tenant", req.Path)
	s.Equal(http.MethodGet, req.Method)
	s.Equal("application/json", req.Header.Get("Content-Type"))
	s.Equal("application/json", req.Header.Get("Accept"))
	s.Equal(DefaultUserAgent, req.Header.Get("User-Agent"))
	_, parseErr := uuid.Parse(req.Header.Get(HeaderRequestID))
	s.NoError(parseErr)
}

func (s *ClientSuite) TestRegisterSendsBody() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"data": map[string]any{
				"token":  "tok1",
				"user":   map[string]any{"id": "u-1", "email": "a@b.com", "role": "admin"},
				"tenant": map[string]any{"id": "t-1", "name": "Acme", "plan": "free"},
			},
		})
	}

	resp, err := s.client.Register(context.Background(), models.RegisterRequest{
		Email: "a@b.com", Password: "secret1", TenantName: "Acme",
	})
	s.Require().NoError(err)
	s.Equal("tok1", resp.Token)
	s.Equal("admin", resp.User.Role)
	s.Equal("Acme", resp.Tenant.Name)

	req := s.lastRequest()
	s.Equal(http.MethodPost, req.Method)
	s.Equal("/api/auth/register", req.Path)
	s.JSONEq(`{"email":"a@b.com","password":"secret1","tenantName":"Acme"}`, string(req.Body))
}

func (s *ClientSuite) TestGetUsageReturnsValuesAsReceived() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"month": "2024-05", "used": 50000, "limit": 100000, "remaining": 50000, "percentageUsed": 50,
			},
		})
	}

	usage, err := s.client.GetUsage(context.Background())
	s.Require().NoError(err)
	s.Equal("2024-05", usage.Month)
	s.Equal(int64(50000), usage.Used)
	s.Equal(int64(100000), usage.Limit)
	s.Equal(int64(50000), usage.Remaining)
	s.Equal("50", usage.PercentageUsed.String())
}

func (s *ClientSuite) TestListsAreUnwrapped() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/usage/history":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
				"history": []map[string]any{{"month": "2024-05", "apiCallCount": 1200, "lastUpdated": "2024-05-20T10:00:00Z"}},
			}})
		case "/api/billing/invoices":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
				"invoices": []map[string]any{{"id": "inv-1", "month": "2024-04", "totalCalls": 150000, "amountDue": "115.00", "status": "paid"}},
			}})
		}
	}

	history, err := s.client.GetUsageHistory(context.Background())
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(int64(1200), history[0].APICallCount)
	s.Require().NotNil(history[0].LastUpdated)

	invoices, err := s.client.GetInvoices(context.Background())
	s.Require().NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal("115.00", invoices[0].AmountDue.String())
	s.Equal(models.InvoiceStatusPaid, invoices[0].Status)
}

func (s *ClientSuite) TestUnenvelopedResponse() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "t-1", "name": "Acme"})
	}
	tenant, err := s.client.GetTenant(context.Background())
	s.Require().NoError(err)
	s.Equal("Acme", tenant.Name)
}

func (s *ClientSuite) TestErrorStatusesCarryStatusAndMessage() {
	cases := []struct {
		name    string
		status  int
		body    map[string]any
		call    func() error
		code    domainerrors.Code
		message string
	}{
		{
			name:    "403 on invoice generation",
			status:  http.StatusForbidden,
			body:    map[string]any{"success": false, "message": "Admin access required"},
			call:    func() error { _, err := s.client.CalculateInvoice(context.Background()); return err },
			code:    domainerrors.CodePermission,
			message: "Admin access required",
		},
		{
			name:    "429 on demo call",
			status:  http.StatusTooManyRequests,
			body:    map[string]any{"success": false, "message": "Monthly API limit exceeded"},
			call:    func() error { _, err := s.client.GetDemoData(context.Background()); return err },
			code:    domainerrors.CodeRateLimit,
			message: "Monthly API limit exceeded",
		},
		{
			name:    "400 uses error_description when message is absent",
			status:  http.StatusBadRequest,
			body:    map[string]any{"error": "invalid_request", "error_description": "No usage for this month"},
			call:    func() error { _, err := s.client.CalculateInvoice(context.Background()); return err },
			code:    domainerrors.CodeValidation,
			message: "No usage for this month",
		},
		{
			name:    "401 falls back to error",
			status:  http.StatusUnauthorized,
			body:    map[string]any{"error": "Invalid token"},
			call:    func() error { _, err := s.client.GetTenant(context.Background()); return err },
			code:    domainerrors.CodeAuth,
			message: "Invalid token",
		},
		{
			name:   "500 without body message",
			status: http.StatusInternalServerError,
			body:   map[string]any{},
			call:   func() error { _, err := s.client.GetUsage(context.Background()); return err },
			code:   domainerrors.CodeServer,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.handler = func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			}
			err := tc.call()
			s.Require().Error(err)

			var apiErr *Error
			s.Require().True(errors.As(err, &apiErr))
			s.Equal(tc.status, apiErr.StatusCode)
			s.Equal(tc.message, apiErr.Message)
			s.Equal(tc.code, domainerrors.Classify(err))
			s.Equal(tc.message, domainerrors.MessageOf(err))
		})
	}
}

func (s *ClientSuite) TestSummaryOmitsEndpointAndBody() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "stack trace here"})
	}
	_, err := s.client.GetDemoData(context.Background())
	s.Require().Error(err)

	s.Contains(err.Error(), "/demo/data")
	s.Equal("Request failed with status code 500", domainerrors.SummaryOf(err))
}

func (s *ClientSuite) TestNetworkFailureHasNoStatus() {
	s.server.Close()

	_, err := s.client.GetUsage(context.Background())
	s.Require().Error(err)

	var apiErr *Error
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(0, apiErr.StatusCode)
	s.Require().Error(apiErr.Err)
	s.Equal(domainerrors.CodeNetwork, domainerrors.Classify(err))
	s.Equal("Network Error", domainerrors.SummaryOf(err))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.NetworkFailures.WithLabelValues("usage")))
}

func (s *ClientSuite) TestMalformedSuccessBody() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":{"used":"many"}}`))
	}
	_, err := s.client.GetUsage(context.Background())

	var apiErr *Error
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusOK, apiErr.StatusCode)
	s.Equal(domainerrors.CodeServer, domainerrors.Classify(err))
}

func (s *ClientSuite) TestMetricsPerEndpoint() {
	_, _ = s.client.GetUsage(context.Background())
	_, _ = s.client.GetUsage(context.Background())
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.Requests.WithLabelValues("usage", "2xx")))
}

func (s *ClientSuite) TestConcurrentCallsAreSafe() {
	s.token = "tok1"
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.client.GetUsage(context.Background())
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Len(s.requests, 8)
}

func TestNew_Defaults(t *testing.T) {
	c := New("http://localhost:5000/api/")
	if c.BaseURL() != "http://localhost:5000/api" {
		t.Fatalf("unexpected base url %q", c.BaseURL())
	}
}
