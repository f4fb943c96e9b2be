package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// Metrics tracks status snapshot exports per sink.
type Metrics struct {
	Published       *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	CircuitState    *prometheus.GaugeVec
}

// New registers the status metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the status metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meshgate_status_publish_total",
			Help: "Status snapshot publish attempts by sink and result",
		}, []string{"sink", "result"}), // result: "ok", "error", "dropped"

		PublishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meshgate_status_publish_duration_seconds",
			Help:    "Duration of status snapshot writes by sink",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"sink"}),

		CircuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meshgate_status_sink_circuit_open",
			Help: "Sink circuit breaker state (0=closed, 1=open)",
		}, []string{"sink"}),
	}
}

// ObservePublish records one write attempt.
func (m *Metrics) ObservePublish(sink, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(sink, result).Inc()
	if result != ResultDropped {
		m.PublishDuration.WithLabelValues(sink).Observe(d.Seconds())
	}
}

// SetCircuitOpen sets the circuit gauge for sink.
func (m *Metrics) SetCircuitOpen(sink string, open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.WithLabelValues(sink).Set(1)
	} else {
		m.CircuitState.WithLabelValues(sink).Set(0)
	}
}
