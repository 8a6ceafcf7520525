package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the verification engine.
type Metrics struct {
	DocumentsImported   prometheus.Counter
	ImportRowsFailed    prometheus.Counter
	TransitionsAccepted *prometheus.CounterVec
	TransitionsDenied   *prometheus.CounterVec
	GeofenceViolations  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DocumentsImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldproof_documents_imported_total",
			Help: "Total number of verification documents created by bulk import",
		}),
		ImportRowsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldproof_import_rows_failed_total",
			Help: "Total number of import rows rejected by validation",
		}),
		TransitionsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldproof_transitions_accepted_total",
			Help: "Accepted document state transitions by action",
		}, []string{"action"}),
		TransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldproof_transitions_denied_total",
			Help: "Denied document state transitions by action and failure kind",
		}, []string{"action", "reason"}),
		GeofenceViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldproof_geofence_violations_total",
			Help: "Findings submissions blocked because the moderator was out of range",
		}),
	}
}

// IncrementTransitionAccepted records one accepted transition for the action.
func (m *Metrics) IncrementTransitionAccepted(action string) {
	m.TransitionsAccepted.WithLabelValues(action).Inc()
}

// IncrementTransitionDenied records one denied transition attempt.
func (m *Metrics) IncrementTransitionDenied(action, reason string) {
	m.TransitionsDenied.WithLabelValues(action, reason).Inc()
}
