package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts auth outcomes. Label values are a fixed vocabulary so
// cardinality stays flat: outcome is one of success, invalid_credentials,
// invalid_token, reuse_detected, conflict, error.
type Metrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	logouts       prometheus.Counter
}

// NewMetrics registers the auth counters on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// parallel fixtures do not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tube_auth_registrations_total",
			Help: "User registrations by outcome.",
		}, []string{"outcome"}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tube_auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tube_auth_refreshes_total",
			Help: "Refresh rotations by outcome; reuse_detected counts revocations.",
		}, []string{"outcome"}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Name: "tube_auth_logouts_total",
			Help: "Completed logouts.",
		}),
	}
}

func (m *Metrics) registration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}
