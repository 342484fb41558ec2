package geo

import (
	"errors"
	"fmt"
)

// ErrInvalidBounds reports a degenerate or non-finite bounding box.
var ErrInvalidBounds = errors.New("invalid bounds")

// ErrInvalidGrid reports a grid with a non-positive dimension.
var ErrInvalidGrid = errors.New("invalid grid")

// Bounds is an axis-aligned lng/lat bounding box.
type Bounds struct {
	MinLng float64 `yaml:"min_lng" json:"minLng"`
	MaxLng float64 `yaml:"max_lng" json:"maxLng"`
	MinLat float64 `yaml:"min_lat" json:"minLat"`
	MaxLat float64 `yaml:"max_lat" json:"maxLat"`
}

// Validate fails when any edge is not finite or when min >= max on either axis.
func (b Bounds) Validate() error {
	if !Pt(b.MinLng, b.MinLat).IsFinite() || !Pt(b.MaxLng, b.MaxLat).IsFinite() {
		return fmt.Errorf("%w: non-finite coordinate in %+v", ErrInvalidBounds, b)
	}
	if b.MinLng >= b.MaxLng {
		return fmt.Errorf("%w: min_lng %.6f must be less than max_lng %.6f", ErrInvalidBounds, b.MinLng, b.MaxLng)
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: min_lat %.6f must be less than max_lat %.6f", ErrInvalidBounds, b.MinLat, b.MaxLat)
	}
	return nil
}

// Center returns the midpoint of the box.
func (b Bounds) Center() LngLat {
	return MidPoint(Pt(b.MinLng, b.MinLat), Pt(b.MaxLng, b.MaxLat))
}

// Grid maps logical cells of a W×H grid onto a bounding box. Cell (0,0)
// sits at the south-west corner.
type Grid struct {
	W, H   int
	Bounds Bounds
}

// NewGrid validates the dimensions and bounds and returns a Grid.
func NewGrid(w, h int, b Bounds) (Grid, error) {
	if w <= 0 || h <= 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, w, h)
	}
	if err := b.Validate(); err != nil {
		return Grid{}, err
	}
	return Grid{W: w, H: h, Bounds: b}, nil
}

// CellToPolygon returns the lng/lat rectangle covering cell (x, y).
func (g Grid) CellToPolygon(x, y int) Polygon {
	lngStep := (g.Bounds.MaxLng - g.Bounds.MinLng) / float64(g.W)
	latStep := (g.Bounds.MaxLat - g.Bounds.MinLat) / float64(g.H)

	lng0 := g.Bounds.MinLng + float64(x)*lngStep
	lng1 := g.Bounds.MinLng + float64(x+1)*lngStep
	lat0 := g.Bounds.MinLat + float64(y)*latStep
	lat1 := g.Bounds.MinLat + float64(y+1)*latStep

	return NewPolygon(
		Pt(lng0, lat0),
		Pt(lng1, lat0),
		Pt(lng1, lat1),
		Pt(lng0, lat1),
	)
}

// CellCenter returns the centroid of cell (x, y)'s polygon.
func (g Grid) CellCenter(x, y int) LngLat {
	return g.CellToPolygon(x, y).Centroid()
}

// Locate returns the cell containing pt, or ok=false when pt lies outside
// the grid.
func (g Grid) Locate(pt LngLat) (x, y int, ok bool) {
	b := g.Bounds
	if pt[0] < b.MinLng || pt[0] >= b.MaxLng || pt[1] < b.MinLat || pt[1] >= b.MaxLat {
		return 0, 0, false
	}
	x = int((pt[0] - b.MinLng) / (b.MaxLng - b.MinLng) * float64(g.W))
	y = int((pt[1] - b.MinLat) / (b.MaxLat - b.MinLat) * float64(g.H))
	return x, y, true
}

// CellToPolygon maps cell (x, y) of a gridW×gridH grid to its rectangle
// inside b, failing fast on invalid bounds or grid dimensions.
func CellToPolygon(x, y, gridW, gridH int, b Bounds) (Polygon, error) {
	g, err := NewGrid(gridW, gridH, b)
	if err != nil {
		return Polygon{}, err
	}
	return g.CellToPolygon(x, y), nil
}

// CanopyToLngLat returns the centre of the cell hosting a canopy at (x, y).
func CanopyToLngLat(x, y, gridW, gridH int, b Bounds) (LngLat, error) {
	g, err := NewGrid(gridW, gridH, b)
	if err != nil {
		return LngLat{}, err
	}
	return g.CellCenter(x, y), nil
}
