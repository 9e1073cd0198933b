package request

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds server-side request instrumentation for the mock backend.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billdash_mock_endpoint_latency_seconds",
			Help:    "Latency of mock backend endpoints by route, method and status class",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"endpoint", "method", "status"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "billdash_mock_requests_in_flight",
			Help: "Requests currently being served by the mock backend",
		}),
	}
}

// statusClass folds a status code into 2xx, 4xx and so on.
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
