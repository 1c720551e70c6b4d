package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the issue module.
type Metrics struct {
	// Successful mutations by operation: create, update, delete
	Mutations *prometheus.CounterVec

	// Update/delete attempts rejected by the owner-or-admin rule
	AccessDenied *prometheus.CounterVec

	// Stats rows skipped because of an unknown status or priority
	StatsSkipped *prometheus.CounterVec

	// Store round trips by operation
	StoreLatency *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuehub_issue_mutations_total",
			Help: "Successful issue mutations by operation",
		}, []string{"operation"}),

		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuehub_issue_access_denied_total",
			Help: "Issue mutations rejected because the requester is neither creator nor admin",
		}, []string{"operation"}),

		StatsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuehub_issue_stats_skipped_total",
			Help: "Aggregated rows skipped for an unknown enum value, by field",
		}, []string{"field"}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "issuehub_issue_store_duration_seconds",
			Help:    "Duration of issue store operations",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncMutation(operation string) {
	if m != nil {
		m.Mutations.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncAccessDenied(operation string) {
	if m != nil {
		m.AccessDenied.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) IncStatsSkipped(field string) {
	if m != nil {
		m.StatsSkipped.WithLabelValues(field).Inc()
	}
}

// ObserveStore records the duration of a store call.
func (m *Metrics) ObserveStore(operation string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
