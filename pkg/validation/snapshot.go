package validation

import (
	"fmt"
	"math"

	"github.com/urbansense/canopysim/pkg/sim"
)

// ValidateSnapshot checks a generated snapshot against the generator's
// output invariants: grid coverage, value ranges, series alignment,
// aggregate means, canopy status rules and funnel monotonicity.
func ValidateSnapshot(s *sim.Snapshot) *Report {
	r := NewReport()

	if s == nil {
		r.AddError(Result{
			Level:   LevelGeneration,
			Message: "snapshot is nil",
		})
		return r
	}

	validateCells(s, r)
	validateSeries(s, r)
	validateAggregates(s, r)
	validateCanopyStatus(s, r)
	validateFunnels(s, r)

	return r
}

func validateCells(s *sim.Snapshot, r *Report) {
	want := s.GridSize.W * s.GridSize.H
	if len(s.Cells) != want {
		r.AddError(Result{
			Level:       LevelGeneration,
			Message:     fmt.Sprintf("expected %d cells for a %dx%d grid, got %d", want, s.GridSize.W, s.GridSize.H, len(s.Cells)),
			Path:        "cells",
			ActualValue: len(s.Cells),
			Expected:    fmt.Sprintf("%d", want),
		})
	}

	seen := make(map[string]int, len(s.Cells))
	for i, c := range s.Cells {
		if prev, ok := seen[c.ID]; ok {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("duplicate cell id %q at indices %d and %d", c.ID, prev, i),
				Path:        fmt.Sprintf("cells[%d].id", i),
				ActualValue: c.ID,
			})
		}
		seen[c.ID] = i
		if c.X < 0 || c.X >= s.GridSize.W || c.Y < 0 || c.Y >= s.GridSize.H {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("cell %s outside grid", c.ID),
				Path:        fmt.Sprintf("cells[%d]", i),
				ActualValue: fmt.Sprintf("(%d,%d)", c.X, c.Y),
			})
		}
	}
}

func validateSeries(s *sim.Snapshot, r *Report) {
	for _, c := range s.Cells {
		series, ok := s.CellSeries[c.ID]
		path := fmt.Sprintf("cellSeries[%s]", c.ID)
		if !ok {
			r.AddError(Result{Level: LevelGeneration, Message: fmt.Sprintf("missing series for cell %s", c.ID), Path: path})
			continue
		}
		if len(series.AQI) != s.Hours || len(series.Foot) != s.Hours {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("cell %s series lengths %d/%d, want %d", c.ID, len(series.AQI), len(series.Foot), s.Hours),
				Path:        path,
				ActualValue: [2]int{len(series.AQI), len(series.Foot)},
			})
			continue
		}
		for i := range series.AQI {
			if v := series.AQI[i].V; v < 20 || v > 220 {
				r.AddError(Result{
					Level:       LevelGeneration,
					Message:     fmt.Sprintf("cell %s hour %d aqi out of range", c.ID, i),
					Path:        fmt.Sprintf("%s.aqi[%d]", path, i),
					ActualValue: v,
					Expected:    "20..220",
				})
			}
			if v := series.Foot[i].V; v < 0 || v > 30 {
				r.AddError(Result{
					Level:       LevelGeneration,
					Message:     fmt.Sprintf("cell %s hour %d foot traffic out of range", c.ID, i),
					Path:        fmt.Sprintf("%s.foot[%d]", path, i),
					ActualValue: v,
					Expected:    "0..30",
				})
			}
			if i > 0 && !series.AQI[i].At.After(series.AQI[i-1].At) {
				r.AddError(Result{
					Level:   LevelGeneration,
					Message: fmt.Sprintf("cell %s timestamps not strictly increasing at hour %d", c.ID, i),
					Path:    fmt.Sprintf("%s.aqi[%d].ts", path, i),
				})
			}
		}
	}
}

func validateAggregates(s *sim.Snapshot, r *Report) {
	if len(s.AQISeries) != s.Hours || len(s.FootSeriesToday) != s.Hours {
		r.AddError(Result{
			Level:       LevelGeneration,
			Message:     fmt.Sprintf("aggregate series lengths %d/%d, want %d", len(s.AQISeries), len(s.FootSeriesToday), s.Hours),
			Path:        "aqiSeries",
			ActualValue: [2]int{len(s.AQISeries), len(s.FootSeriesToday)},
		})
		return
	}
	if len(s.Cells) == 0 {
		return
	}

	n := float64(len(s.Cells))
	for i := 0; i < s.Hours; i++ {
		if s.AQISeries[i].T != s.FootSeriesToday[i].T {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("label mismatch at hour %d", i),
				Path:        fmt.Sprintf("footSeriesToday[%d].t", i),
				ActualValue: s.FootSeriesToday[i].T,
				Expected:    s.AQISeries[i].T,
			})
		}
		aqiSum, footSum := 0, 0
		for _, c := range s.Cells {
			series := s.CellSeries[c.ID]
			if len(series.AQI) != s.Hours || len(series.Foot) != s.Hours {
				return
			}
			aqiSum += series.AQI[i].V
			footSum += series.Foot[i].V
		}
		if want := int(math.Round(float64(aqiSum) / n)); s.AQISeries[i].V != want {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("aqiSeries[%d] is not the rounded cell mean", i),
				Path:        fmt.Sprintf("aqiSeries[%d].v", i),
				ActualValue: s.AQISeries[i].V,
				Expected:    fmt.Sprintf("%d", want),
			})
		}
		if want := int(math.Round(float64(footSum) / n)); s.FootSeriesToday[i].V != want {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("footSeriesToday[%d] is not the rounded cell mean", i),
				Path:        fmt.Sprintf("footSeriesToday[%d].v", i),
				ActualValue: s.FootSeriesToday[i].V,
				Expected:    fmt.Sprintf("%d", want),
			})
		}
	}
}

func validateCanopyStatus(s *sim.Snapshot, r *Report) {
	for i, c := range s.Canopies {
		path := fmt.Sprintf("canopies[%d]", i)
		if cell := s.Cell(c.X, c.Y); cell == nil {
			r.AddError(Result{Level: LevelGeneration, Message: fmt.Sprintf("canopy %s has no host cell", c.ID), Path: path})
		} else if cell.Foot != c.Occupancy || cell.AQI != c.AQI {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("canopy %s does not mirror its host cell %s", c.ID, cell.ID),
				Path:        path,
				ActualValue: fmt.Sprintf("occupancy=%d aqi=%d", c.Occupancy, c.AQI),
				Expected:    fmt.Sprintf("occupancy=%d aqi=%d", cell.Foot, cell.AQI),
			})
		}
		if want := sim.ClassifyStatus(c.Occupancy, c.AQI); c.Status != want {
			r.AddError(Result{
				Level:       LevelGeneration,
				Message:     fmt.Sprintf("canopy %s status does not follow the threshold rules", c.ID),
				Path:        path + ".status",
				ActualValue: c.Status,
				Expected:    string(want),
			})
		}
	}
}

func validateFunnels(s *sim.Snapshot, r *Report) {
	for i, e := range s.EngagementSites {
		if e.DeepEngaged <= e.Engaged && e.Engaged <= e.Opened && e.Opened <= e.Notified && e.Notified <= e.Passers {
			continue
		}
		r.AddError(Result{
			Level:       LevelGeneration,
			Message:     fmt.Sprintf("engagement funnel for %s is not monotonic", e.ID),
			Path:        fmt.Sprintf("engagementSites[%d]", i),
			ActualValue: []int{e.Passers, e.Notified, e.Opened, e.Engaged, e.DeepEngaged},
			Expected:    "passers >= notified >= opened >= engaged >= deepEngaged",
		})
	}
}
