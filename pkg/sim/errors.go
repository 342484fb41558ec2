package sim

import (
	"errors"

	"github.com/urbansense/canopysim/pkg/geo"
)

var (
	// ErrInvalidHorizon is returned for an hours value other than 24 or 168.
	ErrInvalidHorizon = errors.New("invalid horizon")
	// ErrInvalidBounds is returned for a degenerate or non-finite bounding box.
	ErrInvalidBounds = geo.ErrInvalidBounds
	// ErrEmptyCanopyTable is returned when no canopy positions are configured.
	ErrEmptyCanopyTable = errors.New("empty canopy table")
	// ErrInvalidGrid is returned for a non-positive grid dimension.
	ErrInvalidGrid = geo.ErrInvalidGrid
	// ErrCanopyOutOfGrid is returned when a canopy position lies outside the grid.
	ErrCanopyOutOfGrid = errors.New("canopy outside grid")
)
