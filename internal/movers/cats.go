package movers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/tidewatch/driftsim/internal/environment"
	"github.com/tidewatch/driftsim/internal/sim"
	"github.com/tidewatch/driftsim/internal/spill"
)

// ErrScaleRefPoint indicates a scaling request with a nonzero value but no
// reference point to scale against.
var ErrScaleRefPoint = errors.New("movers: scaling requires a reference point")

// catsSample is one velocity sample of a current pattern.
type catsSample struct {
	pos  spill.Point
	u, v float64 // m/s eastward/northward
}

// CatsConfig holds the optional CatsMover parameters. Scaling adjusts the
// whole pattern so the velocity at ScaleRefPoint equals ScaleValue.
type CatsConfig struct {
	Tide          *environment.Tide
	Scale         bool
	ScaleValue    float64
	ScaleRefPoint *spill.Point
}

// CatsMover advects particles along a steady current pattern loaded from a
// file, optionally modulated by a tidal scale series. Construction is
// fail-fast: a missing pattern file or an inconsistent scaling request is
// an error here, never mid-run.
type CatsMover struct {
	id       string
	filename string
	samples  []catsSample
	tide     *environment.Tide

	scale       bool
	scaleValue  float64
	scaleFactor float64
}

// NewCatsMover loads a current pattern file: CSV records of
// "lon,lat,u,v" velocity samples in m/s.
func NewCatsMover(filename string, cfg CatsConfig) (*CatsMover, error) {
	samples, err := loadCatsPattern(filename)
	if err != nil {
		return nil, err
	}
	m := &CatsMover{
		id:          nextID("cats-mover"),
		filename:    filename,
		samples:     samples,
		tide:        cfg.Tide,
		scale:       cfg.Scale,
		scaleValue:  cfg.ScaleValue,
		scaleFactor: 1,
	}
	if cfg.Scale && cfg.ScaleValue != 0 {
		if cfg.ScaleRefPoint == nil {
			return nil, fmt.Errorf("%w: scale value %g set for %s", ErrScaleRefPoint, cfg.ScaleValue, filename)
		}
		ref := m.sampleNearest(*cfg.ScaleRefPoint)
		refSpeed := math.Hypot(ref.u, ref.v)
		if refSpeed == 0 {
			return nil, fmt.Errorf("movers: pattern %s has zero velocity at the reference point", filename)
		}
		m.scaleFactor = cfg.ScaleValue / refSpeed
	}
	return m, nil
}

func loadCatsPattern(filename string) ([]catsSample, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("movers: current pattern file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("movers: current pattern file %s: %w", filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("movers: current pattern file %s is empty", filename)
	}
	samples := make([]catsSample, 0, len(records))
	for i, rec := range records {
		if len(rec) != 4 {
			return nil, fmt.Errorf("movers: current pattern file %s: record %d has %d fields, want 4",
				filename, i+1, len(rec))
		}
		vals := make([]float64, 4)
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("movers: current pattern file %s record %d: %w", filename, i+1, err)
			}
			vals[j] = v
		}
		samples = append(samples, catsSample{
			pos: spill.Point{Lon: vals[0], Lat: vals[1]},
			u:   vals[2],
			v:   vals[3],
		})
	}
	return samples, nil
}

// ID returns the mover's stable identifier.
func (m *CatsMover) ID() string { return m.id }

// Filename returns the pattern file the mover was built from.
func (m *CatsMover) Filename() string { return m.filename }

// TideSeries exposes the referenced tide for auto-registration; nil when
// the mover runs untided.
func (m *CatsMover) TideSeries() sim.Environment {
	if m.tide == nil {
		return nil
	}
	return m.tide
}

func (m *CatsMover) sampleNearest(p spill.Point) catsSample {
	best := m.samples[0]
	bestDist := math.Inf(1)
	for _, s := range m.samples {
		d := (s.pos.Lon-p.Lon)*(s.pos.Lon-p.Lon) + (s.pos.Lat-p.Lat)*(s.pos.Lat-p.Lat)
		if d < bestDist {
			bestDist = d
			best = s
		}
	}
	return best
}

func (m *CatsMover) RequiredFields() spill.Fields { return spill.Fields{} }

func (m *CatsMover) PrepareForModelRun() error { return nil }

func (m *CatsMover) PrepareForModelStep(*spill.Container, time.Duration, time.Time) error {
	return nil
}

func (m *CatsMover) GetMove(c *spill.Container, dt time.Duration, modelTime time.Time) ([]spill.Point, error) {
	tideScale := 1.0
	if m.tide != nil {
		tideScale = m.tide.At(modelTime)
	}
	factor := m.scaleFactor * tideScale
	secs := dt.Seconds()

	delta := make([]spill.Point, c.NumReleased())
	for i := range delta {
		if c.Statuses[i] != spill.StatusInWater {
			continue
		}
		s := m.sampleNearest(c.Positions[i])
		delta[i] = spill.DeltaFromMeters(s.u*factor*secs, s.v*factor*secs, c.Positions[i].Lat)
	}
	return delta, nil
}

func (m *CatsMover) ModelStepIsDone(*spill.Container) {}
