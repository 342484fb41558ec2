package gov

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/sim"
)

// offlineOccupancy is the occupancy below which an alerting canopy is
// treated as unreachable rather than polluted.
const offlineOccupancy = 5

// Asset is a canopy placed on the map with its maintenance state.
type Asset struct {
	sim.Canopy
	Lng            float64 `json:"lng"`
	Lat            float64 `json:"lat"`
	Offline        bool    `json:"offline"`
	MaintenanceDue bool    `json:"maintenanceDue"`
}

// Assets maps each canopy of a snapshot to coordinates inside the
// snapshot bounds. When maintenanceDue is set every third canopy,
// starting with the first, is flagged for service.
func Assets(s *sim.Snapshot, maintenanceDue bool) ([]Asset, error) {
	g, err := geo.NewGrid(s.GridSize.W, s.GridSize.H, s.Bounds)
	if err != nil {
		return nil, err
	}
	out := make([]Asset, 0, len(s.Canopies))
	for i, c := range s.Canopies {
		pt := g.CellCenter(c.X, c.Y)
		out = append(out, Asset{
			Canopy:         c,
			Lng:            pt.Lng(),
			Lat:            pt.Lat(),
			Offline:        c.Status == sim.StatusAlert && c.Occupancy < offlineOccupancy,
			MaintenanceDue: maintenanceDue && i%3 == 0,
		})
	}
	return out, nil
}

// Severity orders triage items.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// Item is one entry of the operator triage queue.
type Item struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle"`
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	CanopyID string   `json:"canopyId"`
}

// Triage builds the operator queue from assets, most severe first. Items
// of equal severity keep asset order.
func Triage(assets []Asset) []Item {
	var items []Item
	for _, a := range assets {
		if a.Offline {
			items = append(items, Item{
				ID: a.ID, Title: a.Name + ": Offline", Subtitle: "Sensor unreachable",
				Type: "offline", Severity: SeverityHigh, CanopyID: a.ID,
			})
		}
		if a.Status == sim.StatusAlert && !a.Offline {
			items = append(items, Item{
				ID: a.ID + "-aqi", Title: a.Name + ": High AQI", Subtitle: fmt.Sprintf("AQI %d", a.AQI),
				Type: "environment", Severity: SeverityHigh, CanopyID: a.ID,
			})
		}
		if a.Status == sim.StatusBusy {
			items = append(items, Item{
				ID: a.ID + "-occ", Title: a.Name + ": High Occupancy", Subtitle: fmt.Sprintf("Occ %d%%", a.Occupancy),
				Type: "occupancy", Severity: SeverityMedium, CanopyID: a.ID,
			})
		}
		if a.MaintenanceDue {
			items = append(items, Item{
				ID: a.ID + "-maint", Title: a.Name + ": Maintenance Due", Subtitle: "Schedule service",
				Type: "maintenance", Severity: SeverityLow, CanopyID: a.ID,
			})
		}
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return a.Severity.rank() - b.Severity.rank()
	})
	return items
}

// TracePoint is one minute of a canopy drill-down.
type TracePoint struct {
	T         time.Time `json:"t"`
	Occupancy int       `json:"occ"`
	AQI       int       `json:"aqi"`
}

// Trace synthesises the last 60 minutes around a canopy's current reading,
// oldest first, ending at now.
func Trace(rng sim.Source, c sim.Canopy, now time.Time) []TracePoint {
	points := make([]TracePoint, 0, 60)
	for i := 59; i >= 0; i-- {
		occ := math.Round(float64(c.Occupancy) + uniform(rng, -8, 8))
		aqi := math.Round(float64(c.AQI) + uniform(rng, -10, 10))
		points = append(points, TracePoint{
			T:         now.Add(-time.Duration(i) * time.Minute),
			Occupancy: int(math.Max(0, math.Min(100, occ))),
			AQI:       int(math.Max(20, aqi)),
		})
	}
	return points
}
