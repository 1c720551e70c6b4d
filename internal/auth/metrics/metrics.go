package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds auth Prometheus metrics.
type Metrics struct {
	UsersRegistered   prometheus.Counter
	Logins            *prometheus.CounterVec
	Logouts           prometheus.Counter
	RevocationCheckMs prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "issuehub_users_registered_total",
			Help: "Total number of users registered",
		}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuehub_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		Logouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "issuehub_logouts_total",
			Help: "Total number of revoked access tokens",
		}),
		RevocationCheckMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "issuehub_token_revocation_check_duration_ms",
			Help:    "Latency of token revocation checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
	}
}

func (m *Metrics) IncUsersRegistered() {
	if m != nil {
		m.UsersRegistered.Inc()
	}
}

func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncLogout() {
	if m != nil {
		m.Logouts.Inc()
	}
}
