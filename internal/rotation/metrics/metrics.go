package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for epoch rotation.
type Metrics struct {
	Rotations        *prometheus.CounterVec
	RotationDuration prometheus.Histogram
	CurrentEpoch     prometheus.Gauge
	EpochExpiry      prometheus.Gauge

	// Decisions by status and reason for the latest tick
	Decisions *prometheus.GaugeVec
}

// New registers rotation metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers rotation metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meshgate_epoch_rotations_total",
			Help: "Epoch rotation ticks by result",
		}, []string{"result"}), // result: "ok", "error"

		RotationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meshgate_epoch_rotation_duration_seconds",
			Help:    "Duration of one rotation tick excluding status publishing",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		CurrentEpoch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshgate_epoch_current_id",
			Help: "Id of the active epoch",
		}),

		EpochExpiry: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meshgate_epoch_expiry_timestamp_seconds",
			Help: "Unix expiry of the active epoch",
		}),

		Decisions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meshgate_membership_decisions",
			Help: "Nodes per membership status and reason after the latest rotation",
		}, []string{"status", "reason"}),
	}
}

// ObserveRotation records a completed tick.
func (m *Metrics) ObserveRotation(epochID uint64, expiry time.Time, d time.Duration) {
	if m == nil {
		return
	}
	m.Rotations.WithLabelValues("ok").Inc()
	m.RotationDuration.Observe(d.Seconds())
	m.CurrentEpoch.Set(float64(epochID))
	m.EpochExpiry.Set(float64(expiry.Unix()))
}

// IncRotationFailure records a tick that could not commit.
func (m *Metrics) IncRotationFailure() {
	if m != nil {
		m.Rotations.WithLabelValues("error").Inc()
	}
}

// SetDecisions replaces the per-status/reason counts.
func (m *Metrics) SetDecisions(counts map[[2]string]int) {
	if m == nil {
		return
	}
	m.Decisions.Reset()
	for key, n := range counts {
		m.Decisions.WithLabelValues(key[0], key[1]).Set(float64(n))
	}
}
