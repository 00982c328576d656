// Package simmap provides the land/water maps the engine reconciles
// particle positions against: an unbounded all-water map for open-ocean
// runs, and a mask map with rectangular land regions and refloating.
package simmap

import (
	"fmt"
	"math"
	"time"

	"github.com/tidewatch/driftsim/internal/random"
	"github.com/tidewatch/driftsim/internal/spill"
)

// Rect is an axis-aligned lon/lat rectangle.
type Rect struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Contains reports whether p falls inside the rectangle. Boundaries count
// as inside.
func (r Rect) Contains(p spill.Point) bool {
	return p.Lon >= r.MinLon && p.Lon <= r.MaxLon &&
		p.Lat >= r.MinLat && p.Lat <= r.MaxLat
}

// AllWater is a map with no land. Particles never beach; an optional
// bounds rectangle marks particles that drift past it as off-map.
type AllWater struct {
	Bounds *Rect
}

// RefloatElements is a no-op: nothing ever beaches on an all-water map.
func (m *AllWater) RefloatElements(*spill.Container, time.Duration) {}

// BeachElements only enforces the optional bounds.
func (m *AllWater) BeachElements(c *spill.Container) {
	if m.Bounds == nil {
		return
	}
	for i := range c.NextPositions {
		if c.Statuses[i] == spill.StatusInWater && !m.Bounds.Contains(c.NextPositions[i]) {
			c.Statuses[i] = spill.StatusOffMap
		}
	}
}

// DefaultRefloatHalfLife is the time over which half of a beached
// population returns to the water.
const DefaultRefloatHalfLife = time.Hour

// MaskMap is a bounded map with rectangular land regions. Particles whose
// step would carry them onto land are beached at the land edge; beached
// particles refloat stochastically with a configurable half-life, drawing
// from the shared random source so rewound runs reproduce.
type MaskMap struct {
	Bounds          Rect
	Land            []Rect
	RefloatHalfLife time.Duration
}

// NewMaskMap builds a mask map over the given bounds. Land regions that
// poke outside the bounds are rejected.
func NewMaskMap(bounds Rect, land []Rect) (*MaskMap, error) {
	for i, r := range land {
		if r.MinLon < bounds.MinLon || r.MaxLon > bounds.MaxLon ||
			r.MinLat < bounds.MinLat || r.MaxLat > bounds.MaxLat {
			return nil, fmt.Errorf("simmap: land region %d extends outside the map bounds", i)
		}
	}
	return &MaskMap{Bounds: bounds, Land: land, RefloatHalfLife: DefaultRefloatHalfLife}, nil
}

// OnLand reports whether p falls inside any land region.
func (m *MaskMap) OnLand(p spill.Point) bool {
	for _, r := range m.Land {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// RefloatElements returns beached particles to their last water position
// with probability 1 - 2^(-dt/halflife). A non-positive half-life refloats
// immediately.
func (m *MaskMap) RefloatElements(c *spill.Container, dt time.Duration) {
	prob := 1.0
	if m.RefloatHalfLife > 0 {
		prob = 1 - math.Exp2(-dt.Seconds()/m.RefloatHalfLife.Seconds())
	}
	for i := range c.Statuses {
		if c.Statuses[i] != spill.StatusBeached {
			continue
		}
		if random.Float64() < prob {
			c.Statuses[i] = spill.StatusInWater
			c.Positions[i] = c.LastWaterPositions[i]
			c.NextPositions[i] = c.LastWaterPositions[i]
		}
	}
}

// BeachElements walks each in-water particle's step from its committed
// position to its accumulated next position. A step ending on land beaches
// the particle at the last water point along the segment; a step leaving
// the bounds marks it off-map.
func (m *MaskMap) BeachElements(c *spill.Container) {
	for i := range c.NextPositions {
		if c.Statuses[i] != spill.StatusInWater {
			continue
		}
		next := c.NextPositions[i]
		if !m.Bounds.Contains(next) {
			c.Statuses[i] = spill.StatusOffMap
			continue
		}
		if !m.OnLand(next) {
			c.LastWaterPositions[i] = next
			continue
		}
		landing := m.lastWaterAlong(c.Positions[i], next)
		c.Statuses[i] = spill.StatusBeached
		c.NextPositions[i] = landing
		c.LastWaterPositions[i] = landing
	}
}

// lastWaterAlong bisects the from→to segment for the last in-water point
// before the land crossing. from is assumed to be in water.
func (m *MaskMap) lastWaterAlong(from, to spill.Point) spill.Point {
	if m.OnLand(from) {
		return from
	}
	lo, hi := 0.0, 1.0
	for range 32 {
		mid := (lo + hi) / 2
		p := spill.Point{
			Lon: from.Lon + (to.Lon-from.Lon)*mid,
			Lat: from.Lat + (to.Lat-from.Lat)*mid,
			Z:   from.Z + (to.Z-from.Z)*mid,
		}
		if m.OnLand(p) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return spill.Point{
		Lon: from.Lon + (to.Lon-from.Lon)*lo,
		Lat: from.Lat + (to.Lat-from.Lat)*lo,
		Z:   from.Z + (to.Z-from.Z)*lo,
	}
}
