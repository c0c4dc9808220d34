// Package metrics exposes counters for the alumni workflow on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the directory's domain operations. A nil *Metrics is a
// valid no-op receiver so tests can skip registration.
type Metrics struct {
	Registrations prometheus.Counter
	Approvals     prometheus.Counter
	Rejections    prometheus.Counter
	Logins        prometheus.Counter
}

// New registers all workflow metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ehsas_registrations_total",
			Help: "Total number of alumni registrations received",
		}),
		Approvals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ehsas_approvals_total",
			Help: "Total number of alumni registrations approved",
		}),
		Rejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ehsas_rejections_total",
			Help: "Total number of alumni registrations rejected",
		}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ehsas_admin_logins_total",
			Help: "Total number of successful admin logins",
		}),
	}
}

// IncRegistrations records a received registration.
func (m *Metrics) IncRegistrations() {
	if m != nil {
		m.Registrations.Inc()
	}
}

// IncApprovals records an approved registration.
func (m *Metrics) IncApprovals() {
	if m != nil {
		m.Approvals.Inc()
	}
}

// IncRejections records a rejected registration.
func (m *Metrics) IncRejections() {
	if m != nil {
		m.Rejections.Inc()
	}
}

// IncLogins records a successful admin login.
func (m *Metrics) IncLogins() {
	if m != nil {
		m.Logins.Inc()
	}
}
