// Package analytics derives secondary views from generated snapshots:
// AQI against foot-traffic correlation, engagement funnel totals and the
// multi-location control room aggregate.
package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/validation"
)

// ErrEmptySnapshot is returned when a snapshot has no cells or hours.
var ErrEmptySnapshot = errors.New("snapshot has no cells or hours")

// minEventUplift is the west minus east AQI difference during the event
// window below which the event is reported as not visible.
const minEventUplift = 30.0

// HourPair joins the mean AQI and mean foot traffic of one hour.
type HourPair struct {
	T      string `json:"t"`
	AvgAQI int    `json:"avgAQI"`
	Foot   int    `json:"totalFoot"`
}

// Correlation summarises how air quality and foot traffic move together.
type Correlation struct {
	// CellR is Pearson's r over every cell-hour sample.
	CellR float64 `json:"cellR"`
	// AggregateR is Pearson's r between the hourly mean series.
	AggregateR float64 `json:"aggregateR"`
	// Mean AQI of west and east cells across the event window.
	EventWestAQI float64    `json:"eventWestAqi"`
	EventEastAQI float64    `json:"eventEastAqi"`
	Hours        []HourPair `json:"hours"`
}

// Correlate computes the correlation summary of a snapshot.
func Correlate(s *sim.Snapshot) (*Correlation, error) {
	if len(s.Cells) == 0 || s.Hours == 0 {
		return nil, ErrEmptySnapshot
	}

	n := len(s.Cells) * s.Hours
	aqi := make([]float64, 0, n)
	foot := make([]float64, 0, n)
	var west, east []float64
	half := s.GridSize.W / 2

	for _, c := range s.Cells {
		series, ok := s.CellSeries[c.ID]
		if !ok || len(series.AQI) != s.Hours || len(series.Foot) != s.Hours {
			return nil, fmt.Errorf("cell %s: series does not cover %d hours", c.ID, s.Hours)
		}
		for i := 0; i < s.Hours; i++ {
			aqi = append(aqi, float64(series.AQI[i].V))
			foot = append(foot, float64(series.Foot[i].V))
			if i < s.Event.Start || i > s.Event.End {
				continue
			}
			if c.X < half {
				west = append(west, float64(series.AQI[i].V))
			} else {
				east = append(east, float64(series.AQI[i].V))
			}
		}
	}

	out := &Correlation{
		CellR:      pearson(aqi, foot),
		AggregateR: pearson(values(s.AQISeries), values(s.FootSeriesToday)),
		Hours:      make([]HourPair, len(s.AQISeries)),
	}
	if len(west) > 0 {
		out.EventWestAQI = stat.Mean(west, nil)
	}
	if len(east) > 0 {
		out.EventEastAQI = stat.Mean(east, nil)
	}
	for i, p := range s.AQISeries {
		out.Hours[i] = HourPair{T: p.T, AvgAQI: p.V}
		if i < len(s.FootSeriesToday) {
			out.Hours[i].Foot = s.FootSeriesToday[i].V
		}
	}
	return out, nil
}

// Analyze runs Correlate and reports its findings, warning when the
// pollution event did not visibly lift western AQI.
func Analyze(s *sim.Snapshot) (*Correlation, *validation.Report) {
	report := validation.NewReport()
	c, err := Correlate(s)
	if err != nil {
		report.AddError(validation.Result{
			Level:   validation.LevelGeneration,
			Message: err.Error(),
			Path:    "cellSeries",
		})
		return nil, report
	}

	if uplift := c.EventWestAQI - c.EventEastAQI; uplift < minEventUplift {
		report.AddWarning(validation.Result{
			Level:       validation.LevelGeneration,
			Message:     fmt.Sprintf("event window shows only %.1f AQI uplift in the west", uplift),
			Path:        "event",
			ActualValue: uplift,
			Expected:    fmt.Sprintf(">= %.0f", minEventUplift),
		})
	}
	report.AddInfo(validation.Result{
		Level:       validation.LevelGeneration,
		Message:     fmt.Sprintf("cell-hour correlation r=%.3f, hourly r=%.3f", c.CellR, c.AggregateR),
		Path:        "cellSeries",
		ActualValue: c.CellR,
	})
	return c, report
}

// pearson returns 0 instead of NaN when either sample is constant.
func pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func values(points []sim.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = float64(p.V)
	}
	return out
}
