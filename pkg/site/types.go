package site

import (
	"fmt"

	"github.com/urbansense/canopysim/pkg/geo"
)

// Catalog is the static configuration shared by every simulated site: the
// logical grid, where canopies sit on it, the engagement funnel sites, and
// the pilot locations the grid is projected onto.
type Catalog struct {
	Version         string           `yaml:"version" json:"version"`
	Grid            GridDef          `yaml:"grid" json:"grid"`
	Canopies        []CanopyDef      `yaml:"canopies" json:"canopies"`
	EngagementSites []EngagementSite `yaml:"engagement_sites" json:"engagement_sites"`
	Locations       []Location       `yaml:"locations" json:"locations"`
}

// GridDef is the logical grid size in cells.
type GridDef struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// CanopyDef places a canopy on a grid cell. ID and Name are optional and
// default to CAN-n / Canopy n (1-based).
type CanopyDef struct {
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	X    int    `yaml:"x" json:"x"`
	Y    int    `yaml:"y" json:"y"`
}

// EngagementSite is a named point of interest with a base passer count.
type EngagementSite struct {
	ID      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Passers int    `yaml:"passers" json:"passers"`
}

// Location is a pilot site the grid is mapped onto.
type Location struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	DisplayName string     `yaml:"display_name,omitempty" json:"displayName,omitempty"`
	ShortName   string     `yaml:"short_name,omitempty" json:"shortName,omitempty"`
	District    string     `yaml:"district,omitempty" json:"district,omitempty"`
	Center      geo.LngLat `yaml:"center" json:"center"`
	Zoom        float64    `yaml:"zoom,omitempty" json:"zoom,omitempty"`
	Bounds      geo.Bounds `yaml:"bounds" json:"bounds"`
}

// Location returns the location with the given id, or nil if not found.
func (c *Catalog) Location(id string) *Location {
	for i := range c.Locations {
		if c.Locations[i].ID == id {
			return &c.Locations[i]
		}
	}
	return nil
}

// LocationIDs returns every location id in catalog order.
func (c *Catalog) LocationIDs() []string {
	ids := make([]string, len(c.Locations))
	for i, l := range c.Locations {
		ids[i] = l.ID
	}
	return ids
}

// CanopyID returns the configured id of the i-th canopy or its default.
func (c *Catalog) CanopyID(i int) string {
	if id := c.Canopies[i].ID; id != "" {
		return id
	}
	return fmt.Sprintf("CAN-%d", i+1)
}

// CanopyName returns the configured name of the i-th canopy or its default.
func (c *Catalog) CanopyName(i int) string {
	if name := c.Canopies[i].Name; name != "" {
		return name
	}
	return fmt.Sprintf("Canopy %d", i+1)
}
