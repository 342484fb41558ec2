// Package gov produces the operations view of a pilot site: solar output,
// network health, compliance and incidents, plus the asset and triage
// projections built from a canopy snapshot.
package gov

import (
	"math"
	"time"

	"github.com/urbansense/canopysim/pkg/sim"
)

// EnergyPoint is the solar output at one hour of the day.
type EnergyPoint struct {
	T  string  `json:"t"`
	KW float64 `json:"kw"`
}

// Snapshot is the operations summary for one site.
type Snapshot struct {
	PowerKW         float64       `json:"powerKw"`
	NetworkUptime   float64       `json:"networkUptime"`
	ComplianceScore int           `json:"complianceScore"`
	Incidents       int           `json:"incidents"`
	MaintenanceDue  bool          `json:"maintenanceDue"`
	CarbonOffsetT   float64       `json:"carbonOffset"`
	ShadingPct      int           `json:"shading"`
	EnergySeries    []EnergyPoint `json:"energySeries"`
	GeneratedAt     time.Time     `json:"generatedAt"`
}

const (
	peakKW = 42.0
	// kg CO2e avoided per kWh of solar output.
	gridEmissionFactor = 0.7
	maintenanceChance  = 0.2
)

// Generate samples an operations snapshot. The current power reading is
// the energy series value at now's hour.
func Generate(rng sim.Source, now time.Time) Snapshot {
	series := make([]EnergyPoint, 24)
	var kwh float64
	for h := 0; h < 24; h++ {
		kw := solarOutput(rng, h)
		series[h] = EnergyPoint{T: hourLabel(h), KW: kw}
		if h <= now.Hour() {
			kwh += kw
		}
	}

	incidents := 0
	switch r := rng.Float64(); {
	case r > 0.95:
		incidents = 2
	case r > 0.8:
		incidents = 1
	}

	return Snapshot{
		PowerKW:         series[now.Hour()].KW,
		NetworkUptime:   roundTo(uniform(rng, 97.5, 99.9), 1),
		ComplianceScore: int(math.Round(uniform(rng, 86, 98))),
		Incidents:       incidents,
		MaintenanceDue:  rng.Float64() < maintenanceChance,
		CarbonOffsetT:   roundTo(kwh*gridEmissionFactor/1000, 2),
		ShadingPct:      int(math.Round(uniform(rng, 62, 78))),
		EnergySeries:    series,
		GeneratedAt:     now,
	}
}

// solarOutput follows a daylight arc between 06:00 and 18:00 with cloud
// jitter, zero at night.
func solarOutput(rng sim.Source, hour int) float64 {
	if hour < 6 || hour > 18 {
		return 0
	}
	arc := math.Sin(math.Pi * float64(hour-6) / 12)
	cloud := uniform(rng, 0.8, 1.0)
	return roundTo(peakKW*arc*cloud, 1)
}

func hourLabel(h int) string {
	return time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format("15:04")
}

func uniform(rng sim.Source, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
