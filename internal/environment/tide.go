package environment

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// TidePoint is one timestamped tidal scale factor.
type TidePoint struct {
	Time  time.Time
	Scale float64
}

// Tide is a dimensionless scale-factor series applied to a current
// pattern's velocities over the tidal cycle.
type Tide struct {
	id     string
	Name   string
	points []TidePoint
}

// NewTide builds a tide series from scale-factor points.
func NewTide(name string, points []TidePoint) (*Tide, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("environment: tide series %q has no data points", name)
	}
	sorted := make([]TidePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	return &Tide{id: nextID("tide"), Name: name, points: sorted}, nil
}

// ConstantTide returns a series holding one scale factor for all time.
func ConstantTide(scale float64) *Tide {
	t, _ := NewTide("constant tide", []TidePoint{{Scale: scale}})
	return t
}

// NewTideFromFile loads a CSV tide series: "RFC3339,scale" per line.
// Missing files fail fast at construction.
func NewTideFromFile(path string) (*Tide, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("environment: tide data file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("environment: tide data file %s: %w", path, err)
	}
	points := make([]TidePoint, 0, len(records))
	for i, rec := range records {
		if len(rec) != 2 {
			return nil, fmt.Errorf("environment: tide data file %s: record %d has %d fields, want 2",
				path, i+1, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("environment: tide data file %s record %d: %w", path, i+1, err)
		}
		scale, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("environment: tide data file %s record %d: %w", path, i+1, err)
		}
		points = append(points, TidePoint{Time: ts, Scale: scale})
	}
	return NewTide(path, points)
}

// ID returns the series' stable unique identifier.
func (t *Tide) ID() string { return t.id }

// At returns the interpolated scale factor at ts, clamped to the ends.
func (t *Tide) At(ts time.Time) float64 {
	pts := t.points
	if len(pts) == 1 || !ts.After(pts[0].Time) {
		return pts[0].Scale
	}
	last := pts[len(pts)-1]
	if !ts.Before(last.Time) {
		return last.Scale
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Time.After(ts) })
	a, b := pts[i-1], pts[i]
	frac := float64(ts.Sub(a.Time)) / float64(b.Time.Sub(a.Time))
	return a.Scale + frac*(b.Scale-a.Scale)
}
