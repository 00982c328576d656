package spill

import "math"

// Point is a world coordinate: longitude and latitude in degrees, depth in
// meters (positive down).
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Z   float64 `json:"z,omitempty"`
}

// Add returns p displaced by d.
func (p Point) Add(d Point) Point {
	return Point{Lon: p.Lon + d.Lon, Lat: p.Lat + d.Lat, Z: p.Z + d.Z}
}

// Sub returns the component-wise difference p - o.
func (p Point) Sub(o Point) Point {
	return Point{Lon: p.Lon - o.Lon, Lat: p.Lat - o.Lat, Z: p.Z - o.Z}
}

const metersPerDegreeLat = 111120.0

// DeltaFromMeters converts an eastward/northward displacement in meters to a
// lon/lat delta at the given latitude (flat-earth approximation, adequate
// for per-step displacements).
func DeltaFromMeters(dxMeters, dyMeters, lat float64) Point {
	latRad := lat * math.Pi / 180
	return Point{
		Lon: dxMeters / (metersPerDegreeLat * math.Cos(latRad)),
		Lat: dyMeters / metersPerDegreeLat,
	}
}
