package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for outbound billing API calls.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	NetworkFailures *prometheus.CounterVec
}

// New creates the client metrics and registers them on reg. A nil reg
// yields collectors that are never exported.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// - Requests per endpoint and status class (rate)
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billdash_api_requests_total",
			Help: "Total number of billing API requests, labeled by endpoint and status class",
		}, []string{"endpoint", "status"}),
		// - Latency per endpoint (histogram)
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billdash_api_request_duration_seconds",
			Help:    "Latency of billing API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		NetworkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billdash_api_network_failures_total",
			Help: "Total number of billing API requests that received no response",
		}, []string{"endpoint"}),
	}
}

// ObserveRequest records a finished request. A status of 0 means the request
// never got a response.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	class := StatusClass(status)
	m.Requests.WithLabelValues(endpoint, class).Inc()
	m.RequestLatency.WithLabelValues(endpoint, class).Observe(elapsed.Seconds())
	if status == 0 {
		m.NetworkFailures.WithLabelValues(endpoint).Inc()
	}
}

// StatusClass buckets an HTTP status into "2xx".."5xx", or "error" for 0.
func StatusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
