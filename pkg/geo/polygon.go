package geo

import "math"

// Polygon is a single closed ring of positions. Rings produced by this
// package repeat the first vertex at the end, as GeoJSON requires.
type Polygon struct {
	Ring []LngLat
}

// NewPolygon creates a polygon from a list of vertices, closing the ring
// if the last vertex differs from the first.
func NewPolygon(pts ...LngLat) Polygon {
	ring := append([]LngLat(nil), pts...)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return Polygon{Ring: ring}
}

// vertices returns the ring without the closing vertex.
func (p Polygon) vertices() []LngLat {
	n := len(p.Ring)
	if n > 1 && p.Ring[0] == p.Ring[n-1] {
		return p.Ring[:n-1]
	}
	return p.Ring
}

// IsEmpty returns true if the polygon has fewer than 3 distinct vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.vertices()) < 3
}

// local returns the vertices translated so the first one sits at the
// origin. Cells are tiny relative to their absolute coordinates, and the
// shoelace terms cancel badly without this.
func (p Polygon) local() (origin LngLat, v []LngLat) {
	src := p.vertices()
	if len(src) == 0 {
		return LngLat{}, nil
	}
	origin = src[0]
	v = make([]LngLat, len(src))
	for i, pt := range src {
		v[i] = pt.Sub(origin)
	}
	return origin, v
}

func signedArea(v []LngLat) float64 {
	n := len(v)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += v[i][0] * v[j][1]
		area -= v[j][0] * v[i][1]
	}
	return area / 2
}

// Centroid returns the area centroid of the polygon.
func (p Polygon) Centroid() LngLat {
	origin, v := p.local()
	n := len(v)
	if n == 0 {
		return LngLat{}
	}
	a := signedArea(v)
	if p.IsEmpty() || math.Abs(a) < 1e-18 {
		// Degenerate: return average.
		sum := LngLat{}
		for _, pt := range v {
			sum = sum.Add(pt)
		}
		return origin.Add(sum.Scale(1.0 / float64(n)))
	}
	cx, cy := 0.0, 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := v[i][0]*v[j][1] - v[j][0]*v[i][1]
		cx += (v[i][0] + v[j][0]) * cross
		cy += (v[i][1] + v[j][1]) * cross
	}
	f := 1.0 / (6.0 * a)
	return origin.Add(LngLat{cx * f, cy * f})
}

// GeoJSON is the GeoJSON geometry object for a polygon.
type GeoJSON struct {
	Type        string     `json:"type"`
	Coordinates [][]LngLat `json:"coordinates"`
}

// GeoJSON returns the polygon as a GeoJSON Polygon geometry.
func (p Polygon) GeoJSON() GeoJSON {
	return GeoJSON{
		Type:        "Polygon",
		Coordinates: [][]LngLat{p.Ring},
	}
}
