// Package observability bundles the Prometheus metrics a model run exposes
// and the HTTP handler that serves them.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector holds the per-run Prometheus metrics.
type RunCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal        prometheus.Counter
	StepDuration      prometheus.Histogram
	ParticlesReleased *prometheus.GaugeVec
	ParticlesBeached  *prometheus.GaugeVec
}

// NewRunCollector registers the run metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &RunCollector{
		gatherer: gatherer,
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driftsim_steps_total",
			Help: "Total number of completed model steps, across rewinds.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "driftsim_step_duration_seconds",
			Help:    "Wall time per model step in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ParticlesReleased: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "driftsim_particles_released",
			Help: "Current number of released particles, labeled by branch.",
		}, []string{"branch"}),
		ParticlesBeached: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "driftsim_particles_beached",
			Help: "Current number of beached particles, labeled by branch.",
		}, []string{"branch"}),
	}

	for _, col := range []prometheus.Collector{
		c.StepsTotal, c.StepDuration, c.ParticlesReleased, c.ParticlesBeached,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("observability: register run metrics: %w", err)
		}
	}
	return c, nil
}

// Handler serves the collector's registry in the Prometheus exposition
// format.
func (c *RunCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// BranchLabel names a container branch for metric labels.
func BranchLabel(uncertain bool) string {
	if uncertain {
		return "uncertain"
	}
	return "certain"
}
