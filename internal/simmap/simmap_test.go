package simmap

import (
	"testing"
	"time"

	"github.com/tidewatch/driftsim/internal/random"
	"github.com/tidewatch/driftsim/internal/spill"
)

var t0 = time.Date(2014, 6, 1, 0, 0, 0, 0, time.UTC)

func containerAt(t *testing.T, positions ...spill.Point) *spill.Container {
	t.Helper()
	c := spill.NewContainer(false)
	def, err := spill.NewPointRelease("test", t0, positions[0], len(positions))
	if err != nil {
		t.Fatal(err)
	}
	c.AddRelease(def)
	c.PrepareForModelRun(nil)
	c.ReleaseElements(time.Minute, t0)
	for i, p := range positions {
		c.Positions[i] = p
		c.NextPositions[i] = p
		c.LastWaterPositions[i] = p
	}
	return c
}

func TestAllWaterNeverBeaches(t *testing.T) {
	m := &AllWater{}
	c := containerAt(t, spill.Point{Lon: -144, Lat: 60})
	c.NextPositions[0] = spill.Point{Lon: 170, Lat: -80}
	m.BeachElements(c)
	if c.Statuses[0] != spill.StatusInWater {
		t.Errorf("all-water map must not change status, got %v", c.Statuses[0])
	}
}

func TestAllWaterBounds(t *testing.T) {
	m := &AllWater{Bounds: &Rect{MinLon: -145, MinLat: 59, MaxLon: -143, MaxLat: 61}}
	c := containerAt(t, spill.Point{Lon: -144, Lat: 60}, spill.Point{Lon: -144, Lat: 60})
	c.NextPositions[1] = spill.Point{Lon: -150, Lat: 60}
	m.BeachElements(c)
	if c.Statuses[0] != spill.StatusInWater {
		t.Error("in-bounds particle should stay in water")
	}
	if c.Statuses[1] != spill.StatusOffMap {
		t.Error("out-of-bounds particle should be marked off-map")
	}
}

func TestMaskMapRejectsLandOutsideBounds(t *testing.T) {
	bounds := Rect{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10}
	_, err := NewMaskMap(bounds, []Rect{{MinLon: 5, MinLat: 5, MaxLon: 15, MaxLat: 8}})
	if err == nil {
		t.Error("land region outside the bounds must fail at construction")
	}
}

func newTestMap(t *testing.T) *MaskMap {
	t.Helper()
	m, err := NewMaskMap(
		Rect{MinLon: 0, MinLat: 0, MaxLon: 10, MaxLat: 10},
		[]Rect{{MinLon: 6, MinLat: 0, MaxLon: 10, MaxLat: 10}}, // eastern shore
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestMaskMapBeaching(t *testing.T) {
	m := newTestMap(t)
	c := containerAt(t, spill.Point{Lon: 5, Lat: 5})
	c.NextPositions[0] = spill.Point{Lon: 7, Lat: 5} // steps onto land

	m.BeachElements(c)

	if c.Statuses[0] != spill.StatusBeached {
		t.Fatalf("expected beached, got %v", c.Statuses[0])
	}
	landing := c.NextPositions[0]
	if m.OnLand(landing) {
		t.Errorf("beaching position %+v must be in water", landing)
	}
	if landing.Lon < 5.99 || landing.Lon >= 6 {
		t.Errorf("beaching should stop just short of the shore at lon 6, got %g", landing.Lon)
	}
	if c.LastWaterPositions[0] != landing {
		t.Error("last water position should record the beaching point")
	}
}

func TestMaskMapTracksLastWater(t *testing.T) {
	m := newTestMap(t)
	c := containerAt(t, spill.Point{Lon: 2, Lat: 5})
	c.NextPositions[0] = spill.Point{Lon: 3, Lat: 5}
	m.BeachElements(c)
	if c.Statuses[0] != spill.StatusInWater {
		t.Fatalf("open-water step should not beach, got %v", c.Statuses[0])
	}
	if c.LastWaterPositions[0] != (spill.Point{Lon: 3, Lat: 5}) {
		t.Errorf("last water position should follow the particle, got %+v", c.LastWaterPositions[0])
	}
}

func TestMaskMapOffMap(t *testing.T) {
	m := newTestMap(t)
	c := containerAt(t, spill.Point{Lon: 1, Lat: 5})
	c.NextPositions[0] = spill.Point{Lon: -2, Lat: 5}
	m.BeachElements(c)
	if c.Statuses[0] != spill.StatusOffMap {
		t.Errorf("expected off-map, got %v", c.Statuses[0])
	}
}

func TestRefloatImmediateWhenHalfLifeZero(t *testing.T) {
	m := newTestMap(t)
	m.RefloatHalfLife = 0
	c := containerAt(t, spill.Point{Lon: 5, Lat: 5})
	c.Statuses[0] = spill.StatusBeached
	c.LastWaterPositions[0] = spill.Point{Lon: 4, Lat: 5}

	m.RefloatElements(c, 15*time.Minute)

	if c.Statuses[0] != spill.StatusInWater {
		t.Fatal("zero half-life should refloat immediately")
	}
	if c.Positions[0] != (spill.Point{Lon: 4, Lat: 5}) {
		t.Errorf("refloated particle should return to its last water position, got %+v", c.Positions[0])
	}
}

func TestRefloatHalfLifeFraction(t *testing.T) {
	m := newTestMap(t)
	m.RefloatHalfLife = time.Hour

	random.Seed(random.DefaultSeed)
	const n = 2000
	beached := make([]spill.Point, n)
	for i := range beached {
		beached[i] = spill.Point{Lon: 6.5, Lat: 5}
	}
	c := containerAt(t, beached...)
	for i := range c.Statuses {
		c.Statuses[i] = spill.StatusBeached
		c.LastWaterPositions[i] = spill.Point{Lon: 5.9, Lat: 5}
	}

	// One half-life elapsed: about half the population should refloat.
	m.RefloatElements(c, time.Hour)
	refloated := 0
	for _, s := range c.Statuses {
		if s == spill.StatusInWater {
			refloated++
		}
	}
	if refloated < n*4/10 || refloated > n*6/10 {
		t.Errorf("after one half-life about half should refloat, got %d of %d", refloated, n)
	}
}

func TestRefloatDeterministicAcrossReseeds(t *testing.T) {
	m := newTestMap(t)
	run := func() []spill.Status {
		random.Seed(random.DefaultSeed)
		c := containerAt(t,
			spill.Point{Lon: 6.5, Lat: 1}, spill.Point{Lon: 6.5, Lat: 2},
			spill.Point{Lon: 6.5, Lat: 3}, spill.Point{Lon: 6.5, Lat: 4})
		for i := range c.Statuses {
			c.Statuses[i] = spill.StatusBeached
			c.LastWaterPositions[i] = spill.Point{Lon: 5.5, Lat: c.Positions[i].Lat}
		}
		m.RefloatElements(c, 30*time.Minute)
		return append([]spill.Status(nil), c.Statuses...)
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("reseeded refloat draws should match, diverged at %d", i)
		}
	}
}
