package outputters

import (
	"time"

	"github.com/tidewatch/driftsim/internal/observability"
	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/spill"
)

// MetricsOutputter publishes per-step run state to a Prometheus
// collector: step counts, step wall time and per-branch particle totals.
type MetricsOutputter struct {
	collector *observability.RunCollector

	spills    *spill.Pair
	stepStart time.Time
}

// NewMetricsOutputter publishes to the given collector.
func NewMetricsOutputter(collector *observability.RunCollector) *MetricsOutputter {
	return &MetricsOutputter{collector: collector}
}

// ID returns a stable identifier for the outputter collection.
func (o *MetricsOutputter) ID() string { return "metrics" }

func (o *MetricsOutputter) PrepareForModelRun(_ time.Time, _ sim.ResultCache, _ bool, spills *spill.Pair) error {
	o.spills = spills
	return nil
}

func (o *MetricsOutputter) PrepareForModelStep(time.Duration, time.Time) error {
	o.stepStart = time.Now()
	return nil
}

func (o *MetricsOutputter) ModelStepIsDone() {}

func (o *MetricsOutputter) WriteOutput(step int, _ bool) (sim.Report, error) {
	o.collector.StepsTotal.Inc()
	if !o.stepStart.IsZero() {
		o.collector.StepDuration.Observe(time.Since(o.stepStart).Seconds())
	}
	for _, c := range o.spills.Items() {
		branch := observability.BranchLabel(c.Uncertain)
		beached := 0
		for _, s := range c.Statuses {
			if s == spill.StatusBeached {
				beached++
			}
		}
		o.collector.ParticlesReleased.WithLabelValues(branch).Set(float64(c.NumReleased()))
		o.collector.ParticlesBeached.WithLabelValues(branch).Set(float64(beached))
	}
	return nil, nil
}

// Rewind resets the per-branch gauges; the step counter keeps counting
// across rewinds.
func (o *MetricsOutputter) Rewind() {
	o.collector.ParticlesReleased.Reset()
	o.collector.ParticlesBeached.Reset()
}
