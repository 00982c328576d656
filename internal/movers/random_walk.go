package movers

import (
	"fmt"
	"math"
	"time"

	"github.com/tidewatch/driftsim/internal/random"
	"github.com/tidewatch/driftsim/internal/spill"
)

// DefaultDiffusion is the horizontal diffusion coefficient in m²/s.
const DefaultDiffusion = 10.0

// RandomMover models horizontal turbulent diffusion as a per-particle
// random walk. All draws come from the shared random source, so a rewound
// model reproduces the same walk.
type RandomMover struct {
	id        string
	diffusion float64 // m²/s
}

// NewRandomMover builds a diffusion mover; a non-positive coefficient is
// rejected at construction.
func NewRandomMover(diffusionM2s float64) (*RandomMover, error) {
	if diffusionM2s <= 0 {
		return nil, fmt.Errorf("movers: diffusion coefficient must be positive, got %g", diffusionM2s)
	}
	return &RandomMover{id: nextID("random-mover"), diffusion: diffusionM2s}, nil
}

// ID returns the mover's stable identifier.
func (m *RandomMover) ID() string { return m.id }

func (m *RandomMover) RequiredFields() spill.Fields { return spill.Fields{} }

func (m *RandomMover) PrepareForModelRun() error { return nil }

func (m *RandomMover) PrepareForModelStep(*spill.Container, time.Duration, time.Time) error {
	return nil
}

func (m *RandomMover) GetMove(c *spill.Container, dt time.Duration, _ time.Time) ([]spill.Point, error) {
	sigma := math.Sqrt(2 * m.diffusion * dt.Seconds())
	delta := make([]spill.Point, c.NumReleased())
	for i := range delta {
		if c.Statuses[i] != spill.StatusInWater {
			continue
		}
		dx := random.NormFloat64() * sigma
		dy := random.NormFloat64() * sigma
		delta[i] = spill.DeltaFromMeters(dx, dy, c.Positions[i].Lat)
	}
	return delta, nil
}

func (m *RandomMover) ModelStepIsDone(*spill.Container) {}

// ConstantMover applies a fixed current velocity to every particle. It is
// the simplest mover and the usual choice for tests and calibration runs.
type ConstantMover struct {
	id   string
	u, v float64 // m/s eastward/northward
}

// NewConstantMover builds a mover with a uniform current.
func NewConstantMover(uMs, vMs float64) *ConstantMover {
	return &ConstantMover{id: nextID("constant-mover"), u: uMs, v: vMs}
}

// ID returns the mover's stable identifier.
func (m *ConstantMover) ID() string { return m.id }

func (m *ConstantMover) RequiredFields() spill.Fields { return spill.Fields{} }

func (m *ConstantMover) PrepareForModelRun() error { return nil }

func (m *ConstantMover) PrepareForModelStep(*spill.Container, time.Duration, time.Time) error {
	return nil
}

func (m *ConstantMover) GetMove(c *spill.Container, dt time.Duration, _ time.Time) ([]spill.Point, error) {
	secs := dt.Seconds()
	delta := make([]spill.Point, c.NumReleased())
	for i := range delta {
		if c.Statuses[i] != spill.StatusInWater {
			continue
		}
		delta[i] = spill.DeltaFromMeters(m.u*secs, m.v*secs, c.Positions[i].Lat)
	}
	return delta, nil
}

func (m *ConstantMover) ModelStepIsDone(*spill.Container) {}
