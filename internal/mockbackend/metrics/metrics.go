package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TenantsRegistered prometheus.Counter
	Logins            *prometheus.CounterVec
	MeteredCalls      *prometheus.CounterVec
	InvoicesGenerated prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TenantsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "billdash_mock_tenants_registered_total",
			Help: "Tenants created through registration",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "billdash_mock_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		MeteredCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "billdash_mock_metered_calls_total",
			Help: "Metered demo calls by result (recorded or limited)",
		}, []string{"result"}),
		InvoicesGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "billdash_mock_invoices_generated_total",
			Help: "Invoices generated",
		}),
	}
}

func (m *Metrics) IncrementTenantRegistered() {
	if m != nil {
		m.TenantsRegistered.Inc()
	}
}

func (m *Metrics) IncrementLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementMeteredCall(recorded bool) {
	if m == nil {
		return
	}
	result := "limited"
	if recorded {
		result = "recorded"
	}
	m.MeteredCalls.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementInvoiceGenerated() {
	if m != nil {
		m.InvoicesGenerated.Inc()
	}
}
