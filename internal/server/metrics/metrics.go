// Package metrics exposes Prometheus collectors for auth decisions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth collectors. A nil *Metrics records nothing.
type Metrics struct {
	decisions      *prometheus.CounterVec
	passwordVerify prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_decisions_total",
				Help: "Auth decisions by operation and reason.",
			},
			[]string{"operation", "reason"},
		),
		passwordVerify: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "auth_password_verify_seconds",
				Help:    "Time spent deriving and comparing password hashes.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
	}
}

// Decision counts one decision of operation with the given reason.
func (m *Metrics) Decision(operation, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, reason).Inc()
}

// PasswordVerify records how long one password verification took.
func (m *Metrics) PasswordVerify(d time.Duration) {
	if m == nil {
		return
	}
	m.passwordVerify.Observe(d.Seconds())
}
