package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderingMetrics tracks checkout throughput and rejections.
type OrderingMetrics struct {
	placed   prometheus.Counter
	rejected *prometheus.CounterVec
	canceled prometheus.Counter
}

func NewOrderingMetrics(reg prometheus.Registerer) *OrderingMetrics {
	if reg == nil {
		return &OrderingMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Orders created by successful checkouts.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "checkout_rejected_total",
		Help:      "Checkouts rejected, by error code.",
	}, []string{"code"})
	canceled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "canceled_total",
		Help:      "Orders canceled.",
	})
	reg.MustRegister(placed, rejected, canceled)
	return &OrderingMetrics{placed: placed, rejected: rejected, canceled: canceled}
}

func (m *OrderingMetrics) AddPlaced(n int) {
	if m == nil || m.placed == nil || n <= 0 {
		return
	}
	m.placed.Add(float64(n))
}

func (m *OrderingMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *OrderingMetrics) IncCanceled() {
	if m == nil || m.canceled == nil {
		return
	}
	m.canceled.Inc()
}
