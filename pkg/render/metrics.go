package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records render outcomes. A nil *Metrics records nothing.
type Metrics struct {
	renders  *prometheus.CounterVec
	duration prometheus.Histogram
	chain    prometheus.Histogram
}

// NewMetrics creates the render collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xview",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Renders by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xview",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent rendering a view, chain included.",
			Buckets:   prometheus.DefBuckets,
		}),
		chain: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xview",
			Subsystem: "render",
			Name:      "chain_length",
			Help:      "Programs executed per render.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
	}
	if reg != nil {
		for _, collector := range []prometheus.Collector{m.renders, m.duration, m.chain} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(elapsed time.Duration, steps int, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	if err != nil {
		m.renders.WithLabelValues("error").Inc()
		return
	}
	m.renders.WithLabelValues("ok").Inc()
	m.chain.Observe(float64(steps))
}
