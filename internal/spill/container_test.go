package spill

import (
	"testing"
	"time"
)

var t0 = time.Date(2013, 2, 13, 9, 0, 0, 0, time.UTC)

func mustPointRelease(t *testing.T, n int) *Release {
	t.Helper()
	r, err := NewPointRelease("test", t0, Point{Lon: -144.0, Lat: 48.5}, n)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReleaseValidation(t *testing.T) {
	if _, err := NewPointRelease("bad", t0, Point{}, 0); err == nil {
		t.Error("zero element count should fail at construction")
	}
	if _, err := NewContinuousRelease("bad", t0, t0.Add(-time.Hour), Point{}, 10); err == nil {
		t.Error("end before start should fail at construction")
	}
}

func TestInstantaneousRelease(t *testing.T) {
	c := NewContainer(false)
	c.AddRelease(mustPointRelease(t, 10))
	c.PrepareForModelRun(Fields{})

	dt := 15 * time.Minute
	if n := c.ReleaseElements(dt, t0.Add(-dt)); n != 0 {
		t.Errorf("nothing due before the release time, got %d", n)
	}
	if n := c.ReleaseElements(dt, t0); n != 10 {
		t.Errorf("all 10 elements due at the release time, got %d", n)
	}
	if n := c.ReleaseElements(dt, t0.Add(dt)); n != 0 {
		t.Errorf("instantaneous release must not release twice, got %d", n)
	}
	if c.NumReleased() != 10 {
		t.Errorf("expected 10 released, got %d", c.NumReleased())
	}
}

func TestContinuousRelease(t *testing.T) {
	def, err := NewContinuousRelease("cont", t0, t0.Add(time.Hour), Point{}, 100)
	if err != nil {
		t.Fatal(err)
	}
	c := NewContainer(false)
	c.AddRelease(def)
	c.PrepareForModelRun(Fields{})

	dt := 15 * time.Minute
	total := 0
	for step := 0; step < 4; step++ {
		n := c.ReleaseElements(dt, t0.Add(time.Duration(step)*dt))
		if n != 25 {
			t.Errorf("step %d: expected 25 due, got %d", step, n)
		}
		total += n
	}
	if total != 100 {
		t.Errorf("expected all 100 released over the hour, got %d", total)
	}
}

func TestReleasePositionsAndFields(t *testing.T) {
	c := NewContainer(false)
	def := mustPointRelease(t, 4)
	def.WindageRange = [2]float64{0.02, 0.03}
	c.AddRelease(def)
	c.PrepareForModelRun(Fields{
		FieldWindages:       {},
		FieldWindageRangeLo: {},
		FieldWindageRangeHi: {},
		FieldWindagePersist: {},
	})
	c.ReleaseElements(time.Minute, t0)

	for i, p := range c.Positions {
		if p != def.Position {
			t.Errorf("element %d should spawn at the release point, got %+v", i, p)
		}
	}
	lo := c.Field(FieldWindageRangeLo)
	hi := c.Field(FieldWindageRangeHi)
	for i := range lo {
		if lo[i] != 0.02 || hi[i] != 0.03 {
			t.Errorf("element %d windage range not propagated: [%g, %g]", i, lo[i], hi[i])
		}
	}
	if c.Field("never_requested") != nil {
		t.Error("unrequested fields should not be allocated")
	}
}

func TestRewindResetsProgress(t *testing.T) {
	c := NewContainer(false)
	c.AddRelease(mustPointRelease(t, 5))
	c.PrepareForModelRun(Fields{FieldWindages: {}})
	c.ReleaseElements(time.Minute, t0)

	c.Rewind()
	if c.NumReleased() != 0 {
		t.Fatalf("rewind should empty arrays, %d left", c.NumReleased())
	}
	if n := c.ReleaseElements(time.Minute, t0); n != 5 {
		t.Errorf("release progress should reset on rewind, got %d", n)
	}
}

func TestBufferResetAndCommit(t *testing.T) {
	c := NewContainer(false)
	c.AddRelease(mustPointRelease(t, 2))
	c.PrepareForModelRun(Fields{})
	c.ReleaseElements(time.Minute, t0)

	c.ResetNextPositions()
	c.NextPositions[0] = c.NextPositions[0].Add(Point{Lon: 0.1})
	c.CommitPositions()

	if c.Positions[0].Lon != c.NextPositions[0].Lon {
		t.Error("commit should copy next positions into positions")
	}
	if c.Positions[1] != c.LastWaterPositions[1] {
		t.Error("untouched element should stay at its spawn point")
	}
}

func TestModelStepIsDoneCompactsOffMap(t *testing.T) {
	c := NewContainer(false)
	c.AddRelease(mustPointRelease(t, 3))
	c.PrepareForModelRun(Fields{FieldWindages: {}})
	c.ReleaseElements(time.Minute, t0)

	c.Positions[1].Lon = 999
	c.Statuses[1] = StatusOffMap
	c.ModelStepIsDone()

	if c.NumReleased() != 2 {
		t.Fatalf("off-map element should be compacted out, %d left", c.NumReleased())
	}
	if len(c.Field(FieldWindages)) != 2 {
		t.Error("extra arrays must stay aligned after compaction")
	}
	for _, p := range c.Positions {
		if p.Lon == 999 {
			t.Error("removed element still present")
		}
	}
}
