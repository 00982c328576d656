// Package movers provides the transport models that contribute per-step
// particle displacements: windage drift, tidal current patterns, diffusion
// and constant currents. Each satisfies [sim.Mover]; wind- and tide-driven
// movers additionally expose their forcing series so the model can lift
// them into its environment collection.
package movers

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tidewatch/driftsim/internal/environment"
	"github.com/tidewatch/driftsim/internal/random"
	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/spill"
)

// ErrBadAngleUnits indicates an uncertain-angle scale given in units other
// than degrees or radians.
var ErrBadAngleUnits = errors.New("movers: uncertain angle units must be \"deg\" or \"rad\"")

var idCounter int

func nextID(kind string) string {
	idCounter++
	return fmt.Sprintf("%s-%d", kind, idCounter)
}

// WindMover drifts surface particles at a per-particle fraction (windage)
// of the wind velocity. Windages are redrawn each step with persistence
// through the shared random source, so runs reproduce across rewinds.
type WindMover struct {
	id   string
	wind *environment.Wind

	uncertainAngleScale float64 // radians
	uncertainAngleUnits string
}

// NewWindMover builds a windage mover over the given wind series.
func NewWindMover(wind *environment.Wind) *WindMover {
	return &WindMover{id: nextID("wind-mover"), wind: wind, uncertainAngleUnits: "rad"}
}

// ID returns the mover's stable identifier.
func (m *WindMover) ID() string { return m.id }

// WindSeries exposes the referenced wind series for auto-registration.
func (m *WindMover) WindSeries() sim.Environment { return m.wind }

// SetUncertainAngle sets the uncertainty-branch angle scale. Units must
// accompany the value and are validated here, never at run time.
func (m *WindMover) SetUncertainAngle(val float64, units string) error {
	switch units {
	case "rad":
		m.uncertainAngleScale = val
	case "deg":
		m.uncertainAngleScale = val * math.Pi / 180
	default:
		return fmt.Errorf("%w: got %q", ErrBadAngleUnits, units)
	}
	m.uncertainAngleUnits = units
	return nil
}

// UncertainAngleScale returns the scale in the units it was set with.
func (m *WindMover) UncertainAngleScale() (float64, string) {
	if m.uncertainAngleUnits == "deg" {
		return m.uncertainAngleScale * 180 / math.Pi, "deg"
	}
	return m.uncertainAngleScale, "rad"
}

func (m *WindMover) RequiredFields() spill.Fields {
	return spill.Fields{
		spill.FieldWindages:       {Default: (spill.DefaultWindageMin + spill.DefaultWindageMax) / 2},
		spill.FieldWindageRangeLo: {Default: spill.DefaultWindageMin},
		spill.FieldWindageRangeHi: {Default: spill.DefaultWindageMax},
		spill.FieldWindagePersist: {Default: spill.DefaultWindagePersist},
	}
}

func (m *WindMover) PrepareForModelRun() error { return nil }

// PrepareForModelStep re-randomizes the container's windages for this step.
func (m *WindMover) PrepareForModelStep(c *spill.Container, dt time.Duration, _ time.Time) error {
	if c.NumReleased() == 0 {
		return nil
	}
	random.WithPersistence(
		c.Field(spill.FieldWindageRangeLo),
		c.Field(spill.FieldWindageRangeHi),
		c.Field(spill.FieldWindagePersist),
		c.Field(spill.FieldWindages),
		dt.Seconds(),
	)
	return nil
}

func (m *WindMover) GetMove(c *spill.Container, dt time.Duration, modelTime time.Time) ([]spill.Point, error) {
	delta := make([]spill.Point, c.NumReleased())
	u, v := m.wind.VelocityAt(modelTime)

	// Uncertainty branch: perturb the wind direction by a draw scaled to
	// the configured angle.
	if c.Uncertain && m.uncertainAngleScale > 0 {
		angle := random.NormFloat64() * m.uncertainAngleScale
		cosA, sinA := math.Cos(angle), math.Sin(angle)
		u, v = u*cosA-v*sinA, u*sinA+v*cosA
	}

	windages := c.Field(spill.FieldWindages)
	secs := dt.Seconds()
	for i := range delta {
		if c.Statuses[i] != spill.StatusInWater {
			continue
		}
		w := windages[i]
		delta[i] = spill.DeltaFromMeters(u*w*secs, v*w*secs, c.Positions[i].Lat)
	}
	return delta, nil
}

func (m *WindMover) ModelStepIsDone(*spill.Container) {}
