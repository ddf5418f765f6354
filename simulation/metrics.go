package simulation

import (
	"diffusion-sim/model"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "diffsim"

// Metrics exposes the progress of scenario runs
type Metrics struct {
	Iterations       *prometheus.CounterVec
	Propagated       *prometheus.CounterVec
	NewlySeen        *prometheus.CounterVec
	ReReceived       *prometheus.CounterVec
	Discarded        *prometheus.CounterVec
	PropagatingUsers *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      name,
				Help:      help,
			},
			[]string{"scenario"},
		)
	}

	m := &Metrics{
		Iterations: counter("iterations_total", "Number of finished iterations"),
		Propagated: counter("propagated_total", "Number of piece deliveries"),
		NewlySeen:  counter("newly_seen_total", "Number of pieces seen for the first time or resurrected"),
		ReReceived: counter("rereceived_total", "Number of receipts of pieces already held"),
		Discarded:  counter("discarded_total", "Number of expired pieces"),
		PropagatingUsers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "propagating_users",
				Help:      "Users that sent at least one piece in the last iteration",
			},
			[]string{"scenario"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.Iterations,
			m.Propagated,
			m.NewlySeen,
			m.ReReceived,
			m.Discarded,
			m.PropagatingUsers,
		)
	}
	return m
}

func (m *Metrics) Observe(scenario string, it *model.Iteration[int64, int64]) {
	m.Iterations.WithLabelValues(scenario).Inc()
	m.Propagated.WithLabelValues(scenario).Add(float64(it.NewlyPropagated))
	m.NewlySeen.WithLabelValues(scenario).Add(float64(it.NewlySeen))
	m.ReReceived.WithLabelValues(scenario).Add(float64(it.NumReReceived))
	m.Discarded.WithLabelValues(scenario).Add(float64(it.NumDiscarded))
	m.PropagatingUsers.WithLabelValues(scenario).Set(float64(it.NumPropagatingUsers))
}
