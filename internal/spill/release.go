package spill

import (
	"errors"
	"fmt"
	"time"
)

// Default windage parameters applied to surface releases, matching the
// conventional 1-4% of wind speed with a 15 minute persistence.
const (
	DefaultWindageMin     = 0.01
	DefaultWindageMax     = 0.04
	DefaultWindagePersist = 900.0 // seconds
)

var errRelease = errors.New("spill: invalid release")

// Release is a scheduled definition of where, when and how many elements
// enter the simulation. A release with End equal to (or before) Start is
// instantaneous; otherwise elements are released linearly over [Start, End].
// A non-nil EndPosition spreads the release along the line from Position to
// EndPosition.
type Release struct {
	Name        string
	Start       time.Time
	End         time.Time
	NumElements int
	Position    Point
	EndPosition *Point

	WindageRange   [2]float64
	WindagePersist float64 // seconds; <= 0 redraws windage every step
}

// NewPointRelease builds an instantaneous point release. Validation is
// fail-fast: a bad element count or windage range is reported here, never
// at run time.
func NewPointRelease(name string, at time.Time, pos Point, n int) (*Release, error) {
	r := &Release{
		Name:           name,
		Start:          at,
		End:            at,
		NumElements:    n,
		Position:       pos,
		WindageRange:   [2]float64{DefaultWindageMin, DefaultWindageMax},
		WindagePersist: DefaultWindagePersist,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewContinuousRelease builds a release spread linearly over [start, end].
func NewContinuousRelease(name string, start, end time.Time, pos Point, n int) (*Release, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w %q: end %v before start %v", errRelease, name, end, start)
	}
	r := &Release{
		Name:           name,
		Start:          start,
		End:            end,
		NumElements:    n,
		Position:       pos,
		WindageRange:   [2]float64{DefaultWindageMin, DefaultWindageMax},
		WindagePersist: DefaultWindagePersist,
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Release) validate() error {
	if r.NumElements <= 0 {
		return fmt.Errorf("%w %q: element count must be positive, got %d", errRelease, r.Name, r.NumElements)
	}
	if r.WindageRange[1] < r.WindageRange[0] {
		return fmt.Errorf("%w %q: windage range [%g, %g] inverted", errRelease, r.Name,
			r.WindageRange[0], r.WindageRange[1])
	}
	return nil
}

// numDue returns how many elements should have been released once model time
// reaches t+dt, given the cumulative count released so far.
func (r *Release) numDue(alreadyReleased int, dt time.Duration, modelTime time.Time) int {
	stepEnd := modelTime.Add(dt)
	if !stepEnd.After(r.Start) {
		return 0
	}
	if !r.End.After(r.Start) || !stepEnd.Before(r.End) {
		return r.NumElements - alreadyReleased
	}
	frac := float64(stepEnd.Sub(r.Start)) / float64(r.End.Sub(r.Start))
	due := int(frac * float64(r.NumElements))
	if due > r.NumElements {
		due = r.NumElements
	}
	return due - alreadyReleased
}

// positionFor returns the spawn position for the i-th element of the
// release, interpolating along the release line when one is defined.
func (r *Release) positionFor(i int) Point {
	if r.EndPosition == nil || r.NumElements <= 1 {
		return r.Position
	}
	frac := float64(i) / float64(r.NumElements-1)
	d := r.EndPosition.Sub(r.Position)
	return Point{
		Lon: r.Position.Lon + frac*d.Lon,
		Lat: r.Position.Lat + frac*d.Lat,
		Z:   r.Position.Z + frac*d.Z,
	}
}
