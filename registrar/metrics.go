package registrar

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registrar collectors. A nil *Metrics records nothing.
type Metrics struct {
	Outcomes          *prometheus.CounterVec
	BindingsPublished prometheus.Counter
	Duration          prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
// Every outcome label is exported from the start, with a zero value.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registrar_register_outcomes_total",
			Help: "Total number of handled REGISTER requests by outcome",
		}, []string{"outcome"}),
		BindingsPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "registrar_bindings_published_total",
			Help: "Total number of bindings published to the location registry",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_register_duration_seconds",
			Help:    "Duration of REGISTER handling",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	m.Outcomes.WithLabelValues("ok")
	for _, r := range Reasons() {
		m.Outcomes.WithLabelValues(string(r))
	}
	return m
}

func (m *Metrics) observe(out Outcome, start time.Time) {
	if m == nil {
		return
	}
	label := "ok"
	if !out.OK() {
		label = string(out.Reason)
	}
	m.Outcomes.WithLabelValues(label).Inc()
	if out.OK() {
		m.BindingsPublished.Add(float64(len(out.AORs)))
	}
	m.Duration.Observe(time.Since(start).Seconds())
}
