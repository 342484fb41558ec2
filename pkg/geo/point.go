package geo

import "math"

// LngLat is a WGS84 position in degrees. It marshals as a GeoJSON
// position: [lng, lat].
type LngLat [2]float64

// Pt is a shorthand constructor for LngLat.
func Pt(lng, lat float64) LngLat {
	return LngLat{lng, lat}
}

// Lng returns the longitude.
func (p LngLat) Lng() float64 { return p[0] }

// Lat returns the latitude.
func (p LngLat) Lat() float64 { return p[1] }

// Add returns p + q.
func (p LngLat) Add(q LngLat) LngLat {
	return LngLat{p[0] + q[0], p[1] + q[1]}
}

// Sub returns p - q.
func (p LngLat) Sub(q LngLat) LngLat {
	return LngLat{p[0] - q[0], p[1] - q[1]}
}

// Scale returns p * s.
func (p LngLat) Scale(s float64) LngLat {
	return LngLat{p[0] * s, p[1] * s}
}

// Lerp returns the linear interpolation between p and q at t in [0,1].
func (p LngLat) Lerp(q LngLat, t float64) LngLat {
	return LngLat{
		p[0] + (q[0]-p[0])*t,
		p[1] + (q[1]-p[1])*t,
	}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p LngLat) IsFinite() bool {
	return isFinite(p[0]) && isFinite(p[1])
}

// MidPoint returns the midpoint between p and q.
func MidPoint(p, q LngLat) LngLat {
	return p.Lerp(q, 0.5)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
