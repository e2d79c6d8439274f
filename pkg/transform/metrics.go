package transform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records cache activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	hits            prometheus.Counter
	misses          prometheus.Counter
	compiles        prometheus.Counter
	compileErrors   prometheus.Counter
	evictions       prometheus.Counter
	compileDuration prometheus.Histogram
}

// NewMetrics creates the cache collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xview",
			Subsystem: "transform_cache",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		hits:          counter("hits_total", "Program lookups served from the cache."),
		misses:        counter("misses_total", "Program lookups that required a compile."),
		compiles:      counter("compiles_total", "Programs compiled."),
		compileErrors: counter("compile_errors_total", "Programs that failed to compile."),
		evictions:     counter("evictions_total", "Cache entries evicted by file changes."),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "xview",
			Subsystem: "transform_cache",
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling programs.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		for _, collector := range []prometheus.Collector{m.hits, m.misses, m.compiles, m.compileErrors, m.evictions, m.compileDuration} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) compiled(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.compileDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.compileErrors.Inc()
		return
	}
	m.compiles.Inc()
}

func (m *Metrics) evicted(n int) {
	if m != nil && n > 0 {
		m.evictions.Add(float64(n))
	}
}
