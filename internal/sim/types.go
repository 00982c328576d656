package sim

import (
	"time"

	"github.com/tidewatch/driftsim/internal/spill"
)

// Report is the merged per-step metadata mapping returned by Step. It always
// carries "step_num"; outputters may contribute further keys, later
// outputters overwriting earlier ones.
type Report map[string]any

// Mover contributes one displacement per particle per step. Movers are
// prepared and queried strictly in their collection's insertion order, and
// their deltas are linearly superposed: no mover sees another's contribution
// for the same step.
type Mover interface {
	// PrepareForModelRun performs one-time setup during the zeroth step.
	PrepareForModelRun() error

	// PrepareForModelStep runs before any displacement is requested for the
	// step, once per particle container.
	PrepareForModelStep(c *spill.Container, dt time.Duration, modelTime time.Time) error

	// GetMove returns per-particle displacement deltas aligned with the
	// container's particle ordering.
	GetMove(c *spill.Container, dt time.Duration, modelTime time.Time) ([]spill.Point, error)

	// ModelStepIsDone runs after the step's positions have been committed.
	ModelStepIsDone(c *spill.Container)

	// RequiredFields lists the per-particle array fields the mover needs
	// allocated in every container.
	RequiredFields() spill.Fields
}

// Map is the land/water boundary the engine keeps particles consistent
// with.
type Map interface {
	// RefloatElements may return previously beached particles to the water
	// given the elapsed step.
	RefloatElements(c *spill.Container, dt time.Duration)

	// BeachElements corrects the accumulated next-position buffer for
	// particles that crossed onto land.
	BeachElements(c *spill.Container)
}

// Environment is an entry in the model's environment collection: a forcing
// data series (wind, tide) referenced by movers. Entries must expose a
// stable unique identifier.
type Environment interface {
	ID() string
}

// WindDriven is implemented by movers that reference a wind series; the
// model lifts the series into its environment collection when such a mover
// is added.
type WindDriven interface {
	WindSeries() Environment
}

// TideDriven is the tide counterpart of WindDriven; a nil series means the
// mover runs untided.
type TideDriven interface {
	TideSeries() Environment
}

// Outputter consumes committed per-step state to produce a report artifact.
type Outputter interface {
	PrepareForModelRun(startTime time.Time, cache ResultCache, uncertain bool, spills *spill.Pair) error
	PrepareForModelStep(dt time.Duration, modelTime time.Time) error
	ModelStepIsDone()

	// WriteOutput emits the step's fragment; a non-nil Report is merged into
	// the model's per-step report.
	WriteOutput(step int, isFinal bool) (Report, error)

	Rewind()
}

// ResultCache is a time-indexed snapshot store for the particle
// containers. Saves are no-ops while the cache is disabled.
type ResultCache interface {
	Enabled() bool
	Rewind()
	SaveTimestep(step int, spills *spill.Pair) error
}
