package metrics

import "github.com/prometheus/client_golang/prometheus"

// Mirror outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// MirrorMetrics counts token ledger operations and the reconciliation drift
// they correct.
type MirrorMetrics struct {
	operations *prometheus.CounterVec
	drift      *prometheus.CounterVec
}

func NewMirrorMetrics(reg prometheus.Registerer) *MirrorMetrics {
	if reg == nil {
		return &MirrorMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "operations_total",
		Help:      "Token ledger mirror operations by kind and outcome.",
	}, []string{"kind", "outcome"})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mirror",
		Name:      "reconcile_drift_units_total",
		Help:      "Absolute minor units minted or burned by reconciliation.",
	}, []string{"currency"})
	reg.MustRegister(operations, drift)
	return &MirrorMetrics{operations: operations, drift: drift}
}

// Observe counts one mirror operation (transfer, mint_burn, reconcile).
func (m *MirrorMetrics) Observe(kind, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// AddDrift records a reconciliation correction of |units|.
func (m *MirrorMetrics) AddDrift(currency string, units int64) {
	if m == nil || m.drift == nil || units == 0 {
		return
	}
	if units < 0 {
		units = -units
	}
	m.drift.WithLabelValues(normalizeLabel(currency)).Add(float64(units))
}
