package request

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billdash/pkg/requestcontext"
)

func TestRequestID(t *testing.T) {
	capture := func(got *string) http.Handler {
		return RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*got = requestcontext.RequestID(r.Context())
		}))
	}

	t.Run("generates an ID when none is sent", func(t *testing.T) {
		var got string
		w := httptest.NewRecorder()
		capture(&got).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage", nil))

		assert.Len(t, got, 36)
		assert.Equal(t, got, w.Header().Get(HeaderRequestID))
	})

	t.Run("propagates a valid client ID", func(t *testing.T) {
		var got string
		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		req.Header.Set(HeaderRequestID, "cli.req_42-a")
		w := httptest.NewRecorder()
		capture(&got).ServeHTTP(w, req)

		assert.Equal(t, "cli.req_42-a", got)
		assert.Equal(t, "cli.req_42-a", w.Header().Get(HeaderRequestID))
	})

	t.Run("replaces unsafe IDs", func(t *testing.T) {
		for _, bad := range []string{"id\nforged=1", "a b", strings.Repeat("x", MaxRequestIDLength+1)} {
			var got string
			req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
			req.Header.Set(HeaderRequestID, bad)
			capture(&got).ServeHTTP(httptest.NewRecorder(), req)
			assert.NotEqual(t, bad, got)
			assert.Len(t, got, 36)
		}
	})
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tenant", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Internal server error","error":"Internal Server Error"}`, w.Body.String())
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	t.Run("logs status and request id", func(t *testing.T) {
		logs.Reset()
		RequestID(Logger(logger)(ok)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/usage", nil))
		assert.Contains(t, logs.String(), `"status":202`)
		assert.Contains(t, logs.String(), `"request_id"`)
	})

	t.Run("masks the client address", func(t *testing.T) {
		logs.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.57", "curl/8.0"))
		Logger(logger)(ok).ServeHTTP(httptest.NewRecorder(), req)
		assert.Contains(t, logs.String(), `"client_ip":"203.0.113.0"`)
		assert.NotContains(t, logs.String(), "203.0.113.57")
	})

	t.Run("skips healthy probes", func(t *testing.T) {
		logs.Reset()
		Logger(logger)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Empty(t, logs.String())
	})
}

func TestContentTypeJSON(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		contentType string
		want        int
	}{
		{"json", "application/json", http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", http.StatusOK},
		{"absent", "", http.StatusOK},
		{"form", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestLatencyMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/api/usage/{month}", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/billing/calculate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/usage/2024-05", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/usage/2024-06", nil))

	// Both requests collapse into one series keyed by the route pattern.
	assert.Equal(t, 1, testutil.CollectAndCount(m.EndpointLatency, "billdash_mock_endpoint_latency_seconds"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/billing/calculate", nil))
	assert.Equal(t, 2, testutil.CollectAndCount(m.EndpointLatency, "billdash_mock_endpoint_latency_seconds"))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(http.StatusOK))
	assert.Equal(t, "4xx", statusClass(http.StatusTooManyRequests))
	assert.Equal(t, "5xx", statusClass(http.StatusServiceUnavailable))
}
