// Package sink publishes generated snapshots to outbound transports.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urbansense/canopysim/pkg/sim"
)

// Sink receives every snapshot the feed generates. snapshotID is the id
// the feed recorded the snapshot under in its history.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snapshotID, siteID string, snap *sim.Snapshot) error
	Close() error
}

// Multi fans a snapshot out to several sinks.
type Multi []Sink

// Name implements Sink.
func (m Multi) Name() string { return "multi" }

// Publish sends to every sink and joins their errors.
func (m Multi) Publish(ctx context.Context, snapshotID, siteID string, snap *sim.Snapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, snapshotID, siteID, snap); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Summary is the compact form of a snapshot sent over the wire. Per-cell
// series are left out.
type Summary struct {
	SnapshotID      string               `json:"snapshotId"`
	Site            string               `json:"site"`
	GeneratedAt     string               `json:"generatedAt"`
	Hours           int                  `json:"hours"`
	GridSize        sim.GridSize         `json:"gridSize"`
	Cells           []sim.Cell           `json:"cells"`
	Canopies        []sim.Canopy         `json:"canopies"`
	KPIs            sim.KPIs             `json:"kpis"`
	AQISeries       []sim.Point          `json:"aqiSeries"`
	FootSeriesToday []sim.Point          `json:"footSeriesToday"`
	EngagementSites []sim.EngagementSite `json:"engagementSites"`
	Event           sim.Event            `json:"event"`
}

func summarize(id, siteID string, s *sim.Snapshot) Summary {
	return Summary{
		SnapshotID:      id,
		Site:            siteID,
		GeneratedAt:     s.GeneratedAt.UTC().Format(time.RFC3339),
		Hours:           s.Hours,
		GridSize:        s.GridSize,
		Cells:           s.Cells,
		Canopies:        s.Canopies,
		KPIs:            s.KPIs,
		AQISeries:       s.AQISeries,
		FootSeriesToday: s.FootSeriesToday,
		EngagementSites: s.EngagementSites,
		Event:           s.Event,
	}
}
