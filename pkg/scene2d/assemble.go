// Package scene2d turns a snapshot into a top-down map overlay for the
// dashboard renderer.
package scene2d

import (
	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/sim"
)

// Assemble2D projects a snapshot's cells, canopies and network onto its
// bounds. Cells carry their latest AQI and foot traffic; the gateway sits
// at the centre of the bounds.
func Assemble2D(siteID string, s *sim.Snapshot) (*Scene2D, error) {
	g, err := geo.NewGrid(s.GridSize.W, s.GridSize.H, s.Bounds)
	if err != nil {
		return nil, err
	}

	out := &Scene2D{
		Type: "FeatureCollection",
		Metadata: Metadata{
			Site:        siteID,
			Hours:       s.Hours,
			GridW:       s.GridSize.W,
			GridH:       s.GridSize.H,
			Bounds:      s.Bounds,
			GeneratedAt: s.GeneratedAt,
		},
		Features: make([]Feature, 0, len(s.Cells)+len(s.Canopies)+len(s.Network.Links)),
	}

	out.Features = append(out.Features, assembleCells(g, s.Cells)...)
	canopies, positions := assembleCanopies(g, s.Canopies)
	out.Features = append(out.Features, canopies...)
	links := assembleNetwork(s.Bounds.Center(), s.Network, positions)
	out.Features = append(out.Features, links...)

	out.Metadata.CellCount = len(s.Cells)
	out.Metadata.CanopyCount = len(canopies)
	out.Metadata.LinkCount = len(links)
	return out, nil
}

func assembleCells(g geo.Grid, cells []sim.Cell) []Feature {
	out := make([]Feature, 0, len(cells))
	for _, c := range cells {
		poly := g.CellToPolygon(c.X, c.Y)
		out = append(out, Feature{
			Type:     "Feature",
			ID:       c.ID,
			Geometry: Geometry{Type: "Polygon", Coordinates: poly.GeoJSON().Coordinates},
			Properties: map[string]any{
				"layer": LayerHeatmap,
				"x":     c.X,
				"y":     c.Y,
				"aqi":   c.AQI,
				"foot":  c.Foot,
			},
		})
	}
	return out
}

func assembleCanopies(g geo.Grid, canopies []sim.Canopy) ([]Feature, map[string]geo.LngLat) {
	out := make([]Feature, 0, len(canopies))
	positions := make(map[string]geo.LngLat, len(canopies))
	for _, c := range canopies {
		pt := g.CellCenter(c.X, c.Y)
		positions[c.ID] = pt
		out = append(out, Feature{
			Type:     "Feature",
			ID:       c.ID,
			Geometry: Geometry{Type: "Point", Coordinates: pt},
			Properties: map[string]any{
				"layer":     LayerCanopy,
				"name":      c.Name,
				"occupancy": c.Occupancy,
				"aqi":       c.AQI,
				"status":    c.Status,
			},
		})
	}
	return out, positions
}

// assembleNetwork draws each gateway link to the canopy its sensor is
// mounted on. Links to unplaced sensors are skipped.
func assembleNetwork(gateway geo.LngLat, n sim.Network, positions map[string]geo.LngLat) []Feature {
	sensorCanopy := make(map[string]string, len(n.Nodes))
	for _, node := range n.Nodes {
		if node.CanopyID != "" {
			sensorCanopy[node.ID] = node.CanopyID
		}
	}

	var out []Feature
	for _, l := range n.Links {
		end, ok := positions[sensorCanopy[l.Target]]
		if !ok {
			continue
		}
		out = append(out, Feature{
			Type:     "Feature",
			ID:       l.Source + "-" + l.Target,
			Geometry: Geometry{Type: "LineString", Coordinates: []geo.LngLat{gateway, end}},
			Properties: map[string]any{
				"layer":    LayerNetwork,
				"source":   l.Source,
				"target":   l.Target,
				"strength": l.Strength,
			},
		})
	}
	return out
}
