package scene2d

import (
	"time"

	"github.com/urbansense/canopysim/pkg/geo"
)

// Scene2D is the map overlay for one site: a GeoJSON feature collection
// with the heatmap cells, canopy markers and sensor network links.
type Scene2D struct {
	Type     string    `json:"type"`
	Metadata Metadata  `json:"metadata"`
	Features []Feature `json:"features"`
}

// Metadata describes the snapshot the scene was built from.
type Metadata struct {
	Site        string     `json:"site"`
	Hours       int        `json:"hours"`
	GridW       int        `json:"gridW"`
	GridH       int        `json:"gridH"`
	Bounds      geo.Bounds `json:"bounds"`
	GeneratedAt time.Time  `json:"generatedAt"`
	CellCount   int        `json:"cellCount"`
	CanopyCount int        `json:"canopyCount"`
	LinkCount   int        `json:"linkCount"`
}

// Layer names the overlay a feature belongs to.
type Layer string

const (
	LayerHeatmap Layer = "heatmap"
	LayerCanopy  Layer = "canopy"
	LayerNetwork Layer = "network"
)

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON Point, LineString or Polygon.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}
