package validation

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/site"
)

func generated(t *testing.T, hours int) *sim.Snapshot {
	t.Helper()
	now := time.Date(2025, 3, 14, 15, 42, 0, 0, time.UTC)
	g, err := sim.FromCatalog(site.Default(), func() time.Time { return now })
	if err != nil {
		t.Fatalf("FromCatalog: %v", err)
	}
	snap, err := g.Generate(rand.New(rand.NewPCG(7, 11)), sim.Request{Hours: hours})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return snap
}

func TestValidateSnapshotGenerated(t *testing.T) {
	for _, hours := range []int{sim.HoursDay, sim.HoursWeek} {
		r := ValidateSnapshot(generated(t, hours))
		if !r.Valid {
			t.Errorf("hours=%d: expected valid snapshot, got %d errors: %v", hours, len(r.Errors), r.Errors)
		}
	}
}

func TestValidateSnapshotNil(t *testing.T) {
	if r := ValidateSnapshot(nil); r.Valid {
		t.Error("nil snapshot should be invalid")
	}
}

func TestValidateSnapshotDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *sim.Snapshot)
		path   string
	}{
		{"missing cell", func(s *sim.Snapshot) { s.Cells = s.Cells[:len(s.Cells)-1] }, "cells"},
		{"duplicate id", func(s *sim.Snapshot) { s.Cells[1].ID = s.Cells[0].ID }, "cells[1].id"},
		{"aqi range", func(s *sim.Snapshot) {
			id := s.Cells[0].ID
			s.CellSeries[id].AQI[3].V = 400
		}, "cellSeries[0-0].aqi[3]"},
		{"short aggregate", func(s *sim.Snapshot) { s.AQISeries = s.AQISeries[1:] }, "aqiSeries"},
		{"aggregate mean", func(s *sim.Snapshot) { s.FootSeriesToday[5].V += 3 }, "footSeriesToday[5].v"},
		{"status rule", func(s *sim.Snapshot) {
			if s.Canopies[0].Status == sim.StatusAlert {
				s.Canopies[0].Status = sim.StatusOK
			} else {
				s.Canopies[0].Status = sim.StatusAlert
			}
		}, "canopies[0].status"},
		{"canopy mirror", func(s *sim.Snapshot) { s.Canopies[1].AQI++ }, "canopies[1]"},
		{"truncated cells", func(s *sim.Snapshot) { s.Cells = s.Cells[:100] }, "canopies[0]"},
		{"funnel", func(s *sim.Snapshot) {
			s.EngagementSites[0].DeepEngaged = s.EngagementSites[0].Passers + 1
		}, "engagementSites[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := generated(t, sim.HoursDay)
			tt.mutate(s)
			assertHasError(t, ValidateSnapshot(s), tt.path)
		})
	}
}

func TestValidateSnapshotSparseCells(t *testing.T) {
	s := &sim.Snapshot{
		GridSize: sim.GridSize{W: 24, H: 16},
		Hours:    sim.HoursDay,
		Cells:    []sim.Cell{{ID: "0-0"}},
		Canopies: []sim.Canopy{{ID: "CAN-1", X: 4, Y: 4}},
	}
	r := ValidateSnapshot(s)
	assertHasError(t, r, "cells")
	assertHasError(t, r, "canopies[0]")
}
