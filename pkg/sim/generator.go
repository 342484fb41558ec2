package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/site"
)

// Supported horizons, in hourly steps.
const (
	HoursDay  = 24
	HoursWeek = 168
)

// Status thresholds. Occupancy is checked before AQI.
const (
	BusyOccupancy = 20
	AlertAQI      = 150
)

const (
	maxFoot = 30
	minAQI  = 20
	maxAQI  = 220

	// Fraction of foot traffic kept when it is too hot or too polluted.
	discomfortFactor = 0.65
	discomfortHeat   = 32
	discomfortAQI    = 100

	maxNetworkSensors = 5
)

// Source is the random source the generator draws from. *rand.Rand from
// math/rand and math/rand/v2 both satisfy it.
type Source interface {
	Float64() float64
}

// CanopyPosition is a canopy's identity and logical grid cell.
type CanopyPosition struct {
	ID   string
	Name string
	X, Y int
}

// Config is the fixed configuration owned by a Generator.
type Config struct {
	Grid            GridSize
	Canopies        []CanopyPosition
	EngagementSites []site.EngagementSite
	// Bounds is used when a Request carries none.
	Bounds geo.Bounds
	// Now defaults to time.Now.
	Now func() time.Time
}

// Request selects the horizon and, optionally, the bounds for one call.
type Request struct {
	Hours  int
	Bounds *geo.Bounds
}

// Generator produces synthetic spatio-temporal snapshots. It holds no
// mutable state and is safe for concurrent use; each caller supplies its
// own Source.
type Generator struct {
	cfg Config
}

// New validates cfg and returns a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Grid.W <= 0 || cfg.Grid.H <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, cfg.Grid.W, cfg.Grid.H)
	}
	if len(cfg.Canopies) == 0 {
		return nil, ErrEmptyCanopyTable
	}
	for _, c := range cfg.Canopies {
		if c.X < 0 || c.Y < 0 || c.X >= cfg.Grid.W || c.Y >= cfg.Grid.H {
			return nil, fmt.Errorf("%w: %s at (%d,%d) in %dx%d grid", ErrCanopyOutOfGrid, c.ID, c.X, c.Y, cfg.Grid.W, cfg.Grid.H)
		}
	}
	if err := cfg.Bounds.Validate(); err != nil {
		return nil, fmt.Errorf("default bounds: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Canopies = append([]CanopyPosition(nil), cfg.Canopies...)
	cfg.EngagementSites = append([]site.EngagementSite(nil), cfg.EngagementSites...)
	return &Generator{cfg: cfg}, nil
}

// FromCatalog builds a Generator from a site catalog. The first location's
// bounds become the default bounds.
func FromCatalog(c *site.Catalog, now func() time.Time) (*Generator, error) {
	cfg := Config{
		Grid:            GridSize{W: c.Grid.Width, H: c.Grid.Height},
		EngagementSites: c.EngagementSites,
		Now:             now,
	}
	for i, def := range c.Canopies {
		cfg.Canopies = append(cfg.Canopies, CanopyPosition{
			ID:   c.CanopyID(i),
			Name: c.CanopyName(i),
			X:    def.X,
			Y:    def.Y,
		})
	}
	if len(c.Locations) == 0 {
		return nil, fmt.Errorf("%w: catalog has no locations", ErrInvalidBounds)
	}
	cfg.Bounds = c.Locations[0].Bounds
	return New(cfg)
}

// Grid returns the generator's grid size.
func (g *Generator) Grid() GridSize {
	return g.cfg.Grid
}

// ValidHorizon reports whether hours is a supported horizon.
func ValidHorizon(hours int) bool {
	return hours == HoursDay || hours == HoursWeek
}

// ClassifyStatus derives a canopy status from its cell's values.
func ClassifyStatus(occupancy, aqi int) Status {
	switch {
	case occupancy > BusyOccupancy:
		return StatusBusy
	case aqi > AlertAQI:
		return StatusAlert
	default:
		return StatusOK
	}
}

// Generate builds a complete snapshot. It fails without output on an
// unsupported horizon or invalid bounds.
func (g *Generator) Generate(rng Source, req Request) (*Snapshot, error) {
	if !ValidHorizon(req.Hours) {
		return nil, fmt.Errorf("%w: %d hours (want %d or %d)", ErrInvalidHorizon, req.Hours, HoursDay, HoursWeek)
	}
	bounds := g.cfg.Bounds
	if req.Bounds != nil {
		if err := req.Bounds.Validate(); err != nil {
			return nil, err
		}
		bounds = *req.Bounds
	}

	hours := req.Hours
	gridW, gridH := g.cfg.Grid.W, g.cfg.Grid.H

	axis := hourAxis(g.cfg.Now(), hours)
	baseFoot := make([]float64, hours)
	baseHeat := make([]float64, hours)
	for i := range axis {
		baseFoot[i] = footBaseline(i)
		baseHeat[i] = heatBaseline(i)
	}

	event := Event{Start: max(0, hours-6), End: hours - 3, Region: "west"}

	snap := &Snapshot{
		GridSize:    g.cfg.Grid,
		Hours:       hours,
		Bounds:      bounds,
		GeneratedAt: axis[hours-1],
		Cells:       make([]Cell, 0, gridW*gridH),
		CellSeries:  make(map[string]CellSeries, gridW*gridH),
		Event:       event,
	}

	for y := 0; y < gridH; y++ {
		for x := 0; x < gridW; x++ {
			id := fmt.Sprintf("%d-%d", x, y)
			spatial := spatialFactor(x, y)
			west := x < gridW/2

			series := CellSeries{
				AQI:  make([]Point, hours),
				Foot: make([]Point, hours),
			}
			for i, at := range axis {
				inEvent := west && i >= event.Start && i <= event.End
				s := sampleHour(rng, spatial, baseFoot[i], baseHeat[i], inEvent)
				label := hourLabel(at)
				series.AQI[i] = Point{T: label, At: at, V: round(s.aqi)}
				series.Foot[i] = Point{T: label, At: at, V: round(s.foot)}
			}

			snap.CellSeries[id] = series
			snap.Cells = append(snap.Cells, Cell{
				ID:   id,
				X:    x,
				Y:    y,
				Foot: series.Foot[hours-1].V,
				AQI:  series.AQI[hours-1].V,
			})
		}
	}

	snap.AQISeries, snap.FootSeriesToday = aggregate(snap.Cells, snap.CellSeries, axis)
	snap.FootSeriesYesterday = make([]Point, hours)
	for i, p := range snap.FootSeriesToday {
		v := clamp(float64(p.V)+math.Round(uniform(rng, -3, 3)), 0, maxFoot)
		snap.FootSeriesYesterday[i] = Point{T: p.T, At: p.At.Add(-24 * time.Hour), V: int(v)}
	}

	snap.Canopies = g.canopies(snap)
	snap.KPIs = kpis(snap.Canopies, baseHeat)
	snap.EngagementSites = engagement(rng, g.cfg.EngagementSites)
	snap.Sankey = sankey(snap.EngagementSites)
	snap.Network = network(rng, snap.Canopies)

	return snap, nil
}

// hourSample is the result of one (cell, hour) step.
type hourSample struct {
	baselineAQI float64
	foot        float64
	aqi         float64
}

// sampleHour runs the per-hour rules in order: environment-only AQI, then
// the crowd's reaction to the environment, then the crowd's contribution
// back to AQI.
func sampleHour(rng Source, spatial, baseFoot, baseHeat float64, inEvent bool) hourSample {
	baselineAQI := 60 + spatial*20 + uniform(rng, -5, 5)
	if inEvent {
		baselineAQI = 160 + uniform(rng, -10, 10)
	}

	density := densityFactor(spatial)
	foot := clamp(baseFoot*density+uniform(rng, -3, 3), 0, maxFoot)
	if baseHeat > discomfortHeat || baselineAQI > discomfortAQI {
		foot *= discomfortFactor
	}

	pollution := 0.12 + (density-0.3)*0.08
	aqi := clamp(baselineAQI+foot*pollution, minAQI, maxAQI)

	return hourSample{baselineAQI: baselineAQI, foot: foot, aqi: aqi}
}

func (g *Generator) canopies(snap *Snapshot) []Canopy {
	out := make([]Canopy, len(g.cfg.Canopies))
	for i, pos := range g.cfg.Canopies {
		cell := snap.Cell(pos.X, pos.Y)
		out[i] = Canopy{
			ID:        pos.ID,
			Name:      pos.Name,
			X:         pos.X,
			Y:         pos.Y,
			Occupancy: cell.Foot,
			AQI:       cell.AQI,
			Status:    ClassifyStatus(cell.Foot, cell.AQI),
		}
	}
	return out
}

func aggregate(cells []Cell, series map[string]CellSeries, axis []time.Time) (aqi, foot []Point) {
	aqi = make([]Point, len(axis))
	foot = make([]Point, len(axis))
	n := float64(len(cells))
	for i, at := range axis {
		aqiSum, footSum := 0, 0
		for _, c := range cells {
			s := series[c.ID]
			aqiSum += s.AQI[i].V
			footSum += s.Foot[i].V
		}
		label := hourLabel(at)
		aqi[i] = Point{T: label, At: at, V: round(float64(aqiSum) / n)}
		foot[i] = Point{T: label, At: at, V: round(float64(footSum) / n)}
	}
	return aqi, foot
}

func kpis(canopies []Canopy, heat []float64) KPIs {
	occ, aqi := 0, 0
	for _, c := range canopies {
		occ += c.Occupancy
		aqi += c.AQI
	}
	heatSum := 0.0
	for _, h := range heat {
		heatSum += h
	}
	n := float64(len(canopies))
	return KPIs{
		AvgOcc:    round(float64(occ) / n),
		AvgAQI:    round(float64(aqi) / n),
		HeatIndex: round(heatSum / float64(len(heat))),
	}
}

// hourAxis returns hours consecutive whole hours ending at the hour
// containing now.
func hourAxis(now time.Time, hours int) []time.Time {
	end := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	axis := make([]time.Time, hours)
	for i := range axis {
		axis[i] = end.Add(-time.Duration(hours-1-i) * time.Hour)
	}
	return axis
}

func hourLabel(t time.Time) string {
	return t.Format("15:00")
}

// footBaseline is the people-per-cell daily rhythm.
func footBaseline(i int) float64 {
	return clamp(8+12*math.Sin(float64(i)/3), 0, maxFoot)
}

// heatBaseline is the temperature curve in °C.
func heatBaseline(i int) float64 {
	return clamp(26+6*math.Sin(float64(i)/4), 24, 35)
}

func spatialFactor(x, y int) float64 {
	return math.Sin(float64(x)/2) * math.Cos(float64(y)/3)
}

func densityFactor(spatial float64) float64 {
	return 0.3 + 0.7*(1+spatial)/2
}

func uniform(rng Source, lo, hi float64) float64 {
	return rng.Float64()*(hi-lo) + lo
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64) int {
	return int(math.Round(v))
}
