package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the control-plane API.
type Metrics struct {
	Submissions   *prometheus.CounterVec
	ConfigQueries *prometheus.CounterVec
}

// New registers control-plane metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers control-plane metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meshgate_evidence_submissions_total",
			Help: "Evidence submissions by node and result",
		}, []string{"node_id", "result"}), // result: "accepted", "rejected"

		ConfigQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meshgate_node_config_requests_total",
			Help: "Node config queries by node and whether keying material was issued",
		}, []string{"node_id", "issued"}),
	}
}

// IncSubmission records a submission outcome.
func (m *Metrics) IncSubmission(nodeID, result string) {
	if m != nil {
		m.Submissions.WithLabelValues(nodeID, result).Inc()
	}
}

// IncConfigQuery records a config query.
func (m *Metrics) IncConfigQuery(nodeID string, issued bool) {
	if m == nil {
		return
	}
	label := "false"
	if issued {
		label = "true"
	}
	m.ConfigQueries.WithLabelValues(nodeID, label).Inc()
}
