package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics counts outbox deliveries per channel and outcome.
type RelayMetrics struct {
	deliveries *prometheus.CounterVec
	pending    prometheus.Gauge
}

// Relay outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeRetry     = "retry"
	OutcomeTerminal  = "terminal"
	OutcomeDuplicate = "duplicate"
)

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_deliveries_total",
		Help:      "Outbox events handled by the relay, by channel and outcome.",
	}, []string{"channel", "outcome"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outbox_last_batch_size",
		Help:      "Rows fetched by the most recent relay batch.",
	})
	reg.MustRegister(deliveries, pending)
	return &RelayMetrics{deliveries: deliveries, pending: pending}
}

func (m *RelayMetrics) Observe(channel, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(channel), outcome).Inc()
}

func (m *RelayMetrics) SetBatchSize(n int) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(n))
}
