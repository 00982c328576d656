// Package environment provides the forcing data series movers draw from:
// wind time series and tidal scale series. Series carry stable identifiers
// so the model can register them idempotently in its environment
// collection.
package environment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// ErrBadUnits indicates an unsupported speed unit. Unit validation is
// fail-fast: it happens at construction, never during a run.
var ErrBadUnits = errors.New("environment: unsupported speed units")

// metersPerSecond conversion factors for the supported units.
var speedUnits = map[string]float64{
	"m/s":   1.0,
	"knots": 0.514444,
	"mph":   0.44704,
	"km/h":  0.277778,
}

var idCounter int

func nextID(kind string) string {
	idCounter++
	return fmt.Sprintf("%s-%d", kind, idCounter)
}

// WindPoint is one timestamped wind observation. Direction follows the
// meteorological convention: degrees true, blowing from.
type WindPoint struct {
	Time      time.Time
	Speed     float64
	Direction float64
}

// Wind is a wind time series. Speeds are stored in m/s regardless of the
// units they were supplied in.
type Wind struct {
	id     string
	Name   string
	Units  string
	points []WindPoint
}

// NewWind builds a wind series, converting speeds from the given units.
func NewWind(name, units string, points []WindPoint) (*Wind, error) {
	factor, ok := speedUnits[units]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: m/s, knots, mph, km/h)", ErrBadUnits, units)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("environment: wind series %q has no data points", name)
	}
	converted := make([]WindPoint, len(points))
	copy(converted, points)
	for i := range converted {
		converted[i].Speed *= factor
	}
	sort.Slice(converted, func(i, j int) bool { return converted[i].Time.Before(converted[j].Time) })
	return &Wind{id: nextID("wind"), Name: name, Units: units, points: converted}, nil
}

// ConstantWind builds a single-point series that holds for all time.
func ConstantWind(speed, directionDeg float64, units string) (*Wind, error) {
	return NewWind("constant wind", units, []WindPoint{{Speed: speed, Direction: directionDeg}})
}

// NewWindFromFile loads a CSV wind series: one "RFC3339,speed,direction"
// record per line. A missing or malformed file fails here, not at run time.
func NewWindFromFile(path, units string) (*Wind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("environment: wind data file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("environment: wind data file %s: %w", path, err)
	}
	points := make([]WindPoint, 0, len(records))
	for i, rec := range records {
		if len(rec) != 3 {
			return nil, fmt.Errorf("environment: wind data file %s: record %d has %d fields, want 3",
				path, i+1, len(rec))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("environment: wind data file %s record %d: %w", path, i+1, err)
		}
		speed, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("environment: wind data file %s record %d: %w", path, i+1, err)
		}
		dir, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("environment: wind data file %s record %d: %w", path, i+1, err)
		}
		points = append(points, WindPoint{Time: ts, Speed: speed, Direction: dir})
	}
	return NewWind(path, units, points)
}

// ID returns the series' stable unique identifier.
func (w *Wind) ID() string { return w.id }

// At returns the interpolated wind speed (m/s) and direction (degrees from)
// at t, clamped to the series ends.
func (w *Wind) At(t time.Time) (speed, directionDeg float64) {
	pts := w.points
	if len(pts) == 1 || !t.After(pts[0].Time) {
		return pts[0].Speed, pts[0].Direction
	}
	last := pts[len(pts)-1]
	if !t.Before(last.Time) {
		return last.Speed, last.Direction
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Time.After(t) })
	a, b := pts[i-1], pts[i]
	frac := float64(t.Sub(a.Time)) / float64(b.Time.Sub(a.Time))
	return a.Speed + frac*(b.Speed-a.Speed), interpAngle(a.Direction, b.Direction, frac)
}

// VelocityAt returns the eastward/northward wind velocity components (m/s)
// at t. Direction is "blowing from", so the velocity points the other way.
func (w *Wind) VelocityAt(t time.Time) (u, v float64) {
	speed, dir := w.At(t)
	rad := dir * math.Pi / 180
	return -speed * math.Sin(rad), -speed * math.Cos(rad)
}

// interpAngle interpolates along the shorter arc between two bearings.
func interpAngle(a, b, frac float64) float64 {
	diff := math.Mod(b-a+540, 360) - 180
	out := math.Mod(a+frac*diff+360, 360)
	return out
}
