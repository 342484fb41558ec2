package analytics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/urbansense/canopysim/pkg/gov"
	"github.com/urbansense/canopysim/pkg/sim"
)

// MaxLocations is the most locations the control room compares at once.
const MaxLocations = 4

var (
	ErrNoLocations       = errors.New("no locations selected")
	ErrTooManyLocations  = fmt.Errorf("more than %d locations selected", MaxLocations)
	errMissingLocationID = errors.New("location data has no id")
)

// LocationData is the latest pair of snapshots for one site.
type LocationData struct {
	ID  string
	Sim *sim.Snapshot
	Gov gov.Snapshot
}

// Overview aggregates several locations for the control room.
type Overview struct {
	Locations          []string     `json:"locations"`
	TotalPowerKW       float64      `json:"totalPower"`
	AvgUptime          float64      `json:"avgUptime"`
	AvgPeoplePerCanopy float64      `json:"avgPeoplePerCanopy"`
	TotalEngagements   int          `json:"totalEngagements"`
	AvgAQI             float64      `json:"avgAqi"`
	AvgHeatIndex       float64      `json:"avgHeatIndex"`
	Canopies           []sim.Canopy `json:"allCanopies"`
	Incidents          int          `json:"allIncidents"`
	AnyMaintenance     bool         `json:"anyMaintenance"`
	LocationCount      int          `json:"locationCount"`
}

// Aggregate combines per-location snapshots into an Overview. People per
// canopy uses each site's rounded mean occupancy times its canopy count.
func Aggregate(data []LocationData) (*Overview, error) {
	switch {
	case len(data) == 0:
		return nil, ErrNoLocations
	case len(data) > MaxLocations:
		return nil, fmt.Errorf("%w: got %d", ErrTooManyLocations, len(data))
	}

	n := len(data)
	power := make([]float64, n)
	uptime := make([]float64, n)
	aqi := make([]float64, n)
	heat := make([]float64, n)
	o := &Overview{LocationCount: n}
	people := 0.0

	for i, d := range data {
		if d.ID == "" {
			return nil, errMissingLocationID
		}
		if d.Sim == nil {
			return nil, fmt.Errorf("location %s: no snapshot", d.ID)
		}
		o.Locations = append(o.Locations, d.ID)
		power[i] = d.Gov.PowerKW
		uptime[i] = d.Gov.NetworkUptime
		aqi[i] = float64(d.Sim.KPIs.AvgAQI)
		heat[i] = float64(d.Sim.KPIs.HeatIndex)
		people += float64(d.Sim.KPIs.AvgOcc * len(d.Sim.Canopies))
		o.TotalEngagements += Funnel(d.Sim.EngagementSites).DeepEngaged
		o.Canopies = append(o.Canopies, d.Sim.Canopies...)
		o.Incidents += d.Gov.Incidents
		o.AnyMaintenance = o.AnyMaintenance || d.Gov.MaintenanceDue
	}

	o.TotalPowerKW = floats.Sum(power)
	o.AvgUptime = stat.Mean(uptime, nil)
	o.AvgAQI = stat.Mean(aqi, nil)
	o.AvgHeatIndex = stat.Mean(heat, nil)
	if len(o.Canopies) > 0 {
		o.AvgPeoplePerCanopy = people / float64(len(o.Canopies))
	}
	return o, nil
}
