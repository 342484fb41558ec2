package sim

import (
	"time"

	"github.com/urbansense/canopysim/pkg/geo"
)

// Status is the derived state of a canopy.
type Status string

const (
	StatusOK    Status = "ok"
	StatusBusy  Status = "busy"
	StatusAlert Status = "alert"
)

// GridSize is the logical grid dimension in cells.
type GridSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Cell carries the latest-hour values of one grid square.
type Cell struct {
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Foot int    `json:"foot"`
	AQI  int    `json:"aqi"`
}

// Point is one hourly sample. T is the "HH:00" label used by charts; At is
// the absolute hour and is strictly increasing along a series.
type Point struct {
	T  string    `json:"t"`
	At time.Time `json:"ts"`
	V  int       `json:"v"`
}

// CellSeries holds the hourly history of one cell.
type CellSeries struct {
	AQI  []Point `json:"aqi"`
	Foot []Point `json:"foot"`
}

// Canopy is a sensor unit at a fixed grid position. Occupancy, AQI and
// Status are read from the host cell on every generation.
type Canopy struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Occupancy int    `json:"occupancy"`
	AQI       int    `json:"aqi"`
	Status    Status `json:"status"`
}

// EngagementSite is the visitor funnel of one point of interest.
// Each stage is at most the previous one.
type EngagementSite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Passers     int    `json:"passers"`
	Notified    int    `json:"notified"`
	Opened      int    `json:"opened"`
	Engaged     int    `json:"engaged"`
	DeepEngaged int    `json:"deepEngaged"`
}

// SankeyNode is a named funnel stage.
type SankeyNode struct {
	Name string `json:"name"`
}

// SankeyLink is the flow between two stages, by node index.
type SankeyLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// Sankey is the engagement flow summed over all sites.
type Sankey struct {
	Nodes []SankeyNode `json:"nodes"`
	Links []SankeyLink `json:"links"`
}

// KPIs are the headline numbers for a snapshot.
type KPIs struct {
	AvgOcc    int `json:"avgOcc"`
	AvgAQI    int `json:"avgAqi"`
	HeatIndex int `json:"heatIndex"`
}

// NetworkNode is a gateway or sensor in the canopy network.
type NetworkNode struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	CanopyID string `json:"canopyId,omitempty"`
}

// NetworkLink connects a sensor to the gateway.
type NetworkLink struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Strength float64 `json:"strength"`
}

// Network is a star topology around a single gateway.
type Network struct {
	Nodes []NetworkNode `json:"nodes"`
	Links []NetworkLink `json:"links"`
}

// Event describes the injected pollution window. Start and End are
// inclusive hour indices; Region names the affected half of the grid.
type Event struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Region string `json:"region"`
}

// Snapshot is the complete output of one generation.
type Snapshot struct {
	GridSize            GridSize              `json:"gridSize"`
	Hours               int                   `json:"hours"`
	Bounds              geo.Bounds            `json:"bounds"`
	GeneratedAt         time.Time             `json:"generatedAt"`
	Cells               []Cell                `json:"cells"`
	Canopies            []Canopy              `json:"canopies"`
	FootSeriesToday     []Point               `json:"footSeriesToday"`
	FootSeriesYesterday []Point               `json:"footSeriesYesterday"`
	AQISeries           []Point               `json:"aqiSeries"`
	CellSeries          map[string]CellSeries `json:"cellSeries"`
	EngagementSites     []EngagementSite      `json:"engagementSites"`
	Sankey              Sankey                `json:"sankey"`
	KPIs                KPIs                  `json:"kpis"`
	Network             Network               `json:"network"`
	Event               Event                 `json:"event"`
}

// Cell returns the cell at (x, y), or nil when (x, y) is outside the grid
// or the cell list does not hold it at its row-major index.
func (s *Snapshot) Cell(x, y int) *Cell {
	if x < 0 || y < 0 || x >= s.GridSize.W || y >= s.GridSize.H {
		return nil
	}
	i := y*s.GridSize.W + x
	if i >= len(s.Cells) {
		return nil
	}
	if c := &s.Cells[i]; c.X == x && c.Y == y {
		return c
	}
	return nil
}

// Grid returns the lng/lat mapping of the snapshot's cells.
func (s *Snapshot) Grid() geo.Grid {
	return geo.Grid{W: s.GridSize.W, H: s.GridSize.H, Bounds: s.Bounds}
}

// StatusCounts returns how many canopies are in each status.
func (s *Snapshot) StatusCounts() map[Status]int {
	counts := map[Status]int{StatusOK: 0, StatusBusy: 0, StatusAlert: 0}
	for _, c := range s.Canopies {
		counts[c.Status]++
	}
	return counts
}
