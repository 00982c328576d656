// Package spill holds the per-particle state of a model run: the particle
// container with its numeric arrays, the release definitions feeding it, and
// the certain/uncertain container pair.
package spill

import (
	"time"
)

// Status classifies a released element's relationship to the land/water map.
type Status uint8

const (
	StatusInWater Status = iota
	StatusBeached
	StatusOffMap
)

// Well-known per-particle array fields. Movers request the fields they need
// through the allocation contract pushed down in PrepareForModelRun.
const (
	FieldWindages       = "windages"
	FieldWindageRangeLo = "windage_range_lo"
	FieldWindageRangeHi = "windage_range_hi"
	FieldWindagePersist = "windage_persist"
)

// FieldSpec describes one requested per-particle array.
type FieldSpec struct {
	Default float64
}

// Fields is the union of array fields the active movers require.
type Fields map[string]FieldSpec

// Merge folds other into f.
func (f Fields) Merge(other Fields) {
	for name, spec := range other {
		f[name] = spec
	}
}

type releaseState struct {
	def      *Release
	released int
}

// Container owns the particle arrays for one population branch (certain or
// uncertain) plus its release bookkeeping. Arrays only hold released
// elements; all arrays stay index-aligned at all times.
type Container struct {
	Uncertain bool

	Positions          []Point
	NextPositions      []Point
	LastWaterPositions []Point
	Statuses           []Status

	spills []*releaseState
	fields Fields
	data   map[string][]float64

	currentTimeStamp time.Time
}

// NewContainer returns an empty container for one population branch.
func NewContainer(uncertain bool) *Container {
	return &Container{
		Uncertain: uncertain,
		fields:    Fields{},
		data:      map[string][]float64{},
	}
}

// AddRelease registers a release definition with this container.
func (c *Container) AddRelease(def *Release) {
	c.spills = append(c.spills, &releaseState{def: def})
}

// NumSpills returns the number of registered release definitions.
func (c *Container) NumSpills() int { return len(c.spills) }

// NumReleased returns the number of elements currently in the arrays.
func (c *Container) NumReleased() int { return len(c.Positions) }

// CurrentTimeStamp returns the model time the arrays correspond to; the
// zero time means the marker has been cleared.
func (c *Container) CurrentTimeStamp() time.Time { return c.currentTimeStamp }

// SetCurrentTimeStamp stamps the arrays with the model time they belong to.
func (c *Container) SetCurrentTimeStamp(t time.Time) { c.currentTimeStamp = t }

// ClearCurrentTimeStamp drops the stale marker; the engine does this
// defensively at the top of every step.
func (c *Container) ClearCurrentTimeStamp() { c.currentTimeStamp = time.Time{} }

// PrepareForModelRun installs the array-allocation contract for the run and
// resets the arrays. Called once per run during the zeroth step.
func (c *Container) PrepareForModelRun(fields Fields) {
	c.fields = Fields{}
	c.fields.Merge(fields)
	c.resetArrays()
}

// Rewind resets release progress and empties all arrays.
func (c *Container) Rewind() {
	for _, rs := range c.spills {
		rs.released = 0
	}
	c.resetArrays()
	c.ClearCurrentTimeStamp()
}

func (c *Container) resetArrays() {
	c.Positions = c.Positions[:0]
	c.NextPositions = c.NextPositions[:0]
	c.LastWaterPositions = c.LastWaterPositions[:0]
	c.Statuses = c.Statuses[:0]
	c.data = map[string][]float64{}
	for name := range c.fields {
		c.data[name] = []float64{}
	}
}

// Field returns the named per-particle array, or nil when the run's
// allocation contract did not request it.
func (c *Container) Field(name string) []float64 { return c.data[name] }

// ReleaseElements appends every element due during [modelTime,
// modelTime+dt) and returns how many were added.
func (c *Container) ReleaseElements(dt time.Duration, modelTime time.Time) int {
	total := 0
	for _, rs := range c.spills {
		n := rs.def.numDue(rs.released, dt, modelTime)
		for i := 0; i < n; i++ {
			c.appendElement(rs.def, rs.released+i)
		}
		rs.released += n
		total += n
	}
	return total
}

func (c *Container) appendElement(def *Release, ordinal int) {
	pos := def.positionFor(ordinal)
	c.Positions = append(c.Positions, pos)
	c.NextPositions = append(c.NextPositions, pos)
	c.LastWaterPositions = append(c.LastWaterPositions, pos)
	c.Statuses = append(c.Statuses, StatusInWater)
	for name, spec := range c.fields {
		v := spec.Default
		switch name {
		case FieldWindageRangeLo:
			v = def.WindageRange[0]
		case FieldWindageRangeHi:
			v = def.WindageRange[1]
		case FieldWindagePersist:
			v = def.WindagePersist
		case FieldWindages:
			v = (def.WindageRange[0] + def.WindageRange[1]) / 2
		}
		c.data[name] = append(c.data[name], v)
	}
}

// ResetNextPositions copies the committed positions into the scratch
// next-position buffer ahead of mover accumulation.
func (c *Container) ResetNextPositions() {
	copy(c.NextPositions, c.Positions)
}

// CommitPositions makes the accumulated, beaching-corrected next positions
// the committed positions for the step.
func (c *Container) CommitPositions() {
	copy(c.Positions, c.NextPositions)
}

// ModelStepIsDone is the container's own step-completion hook: it compacts
// out elements that left the map during the step.
func (c *Container) ModelStepIsDone() {
	keep := 0
	for i := range c.Statuses {
		if c.Statuses[i] == StatusOffMap {
			continue
		}
		if keep != i {
			c.Positions[keep] = c.Positions[i]
			c.NextPositions[keep] = c.NextPositions[i]
			c.LastWaterPositions[keep] = c.LastWaterPositions[i]
			c.Statuses[keep] = c.Statuses[i]
			for name := range c.data {
				c.data[name][keep] = c.data[name][i]
			}
		}
		keep++
	}
	c.Positions = c.Positions[:keep]
	c.NextPositions = c.NextPositions[:keep]
	c.LastWaterPositions = c.LastWaterPositions[:keep]
	c.Statuses = c.Statuses[:keep]
	for name := range c.data {
		c.data[name] = c.data[name][:keep]
	}
}

// Snapshot is a deep copy of one container's particle arrays at a model
// time. Snapshots are what result caches store and serialize.
type Snapshot struct {
	Uncertain bool                 `json:"uncertain"`
	TimeStamp time.Time            `json:"time_stamp"`
	Positions []Point              `json:"positions"`
	Statuses  []Status             `json:"statuses"`
	Fields    map[string][]float64 `json:"fields,omitempty"`
}

// Snapshot deep-copies the container's current arrays.
func (c *Container) Snapshot() *Snapshot {
	s := &Snapshot{
		Uncertain: c.Uncertain,
		TimeStamp: c.currentTimeStamp,
		Positions: append([]Point(nil), c.Positions...),
		Statuses:  append([]Status(nil), c.Statuses...),
	}
	if len(c.data) > 0 {
		s.Fields = make(map[string][]float64, len(c.data))
		for name, vals := range c.data {
			s.Fields[name] = append([]float64(nil), vals...)
		}
	}
	return s
}

// Equal reports element-wise equality of the two containers' arrays.
func (c *Container) Equal(other *Container) bool {
	if other == nil || c.Uncertain != other.Uncertain {
		return false
	}
	if len(c.Positions) != len(other.Positions) || len(c.data) != len(other.data) {
		return false
	}
	for i := range c.Positions {
		if c.Positions[i] != other.Positions[i] || c.Statuses[i] != other.Statuses[i] {
			return false
		}
	}
	for name, vals := range c.data {
		ovals, ok := other.data[name]
		if !ok || len(ovals) != len(vals) {
			return false
		}
		for i := range vals {
			if vals[i] != ovals[i] {
				return false
			}
		}
	}
	return true
}
