package site

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/urbansense/canopysim/pkg/geo"
)

// Load reads a site catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading site catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing site catalog YAML: %w", err)
	}

	return &c, nil
}

// LoadProject loads a site catalog from a project directory.
// It looks for sites.yaml in the given directory.
func LoadProject(projectDir string) (*Catalog, error) {
	return Load(filepath.Join(projectDir, "sites.yaml"))
}

// Default returns the built-in catalog: a 24x16 grid, six canopies, four
// engagement sites and the Metro Manila pilot locations.
func Default() *Catalog {
	return &Catalog{
		Version: "1",
		Grid:    GridDef{Width: 24, Height: 16},
		Canopies: []CanopyDef{
			{X: 4, Y: 4},
			{X: 9, Y: 6},
			{X: 13, Y: 5},
			{X: 18, Y: 7},
			{X: 7, Y: 11},
			{X: 19, Y: 9},
		},
		EngagementSites: []EngagementSite{
			{ID: "RIZAL", Name: "Rizal Monument", Passers: 1400},
			{ID: "MUSEUM", Name: "Museum Gate", Passers: 950},
			{ID: "THEATER", Name: "Open-Air Auditorium", Passers: 680},
			{ID: "GARDEN", Name: "Garden Walk", Passers: 520},
		},
		Locations: []Location{
			{
				ID: "luneta", Name: "Luneta Park", DisplayName: "Luneta Park (Rizal Park)",
				ShortName: "Luneta", District: "Ermita, Manila",
				Center: geo.Pt(120.9794, 14.5826), Zoom: 15.5,
				Bounds: geo.Bounds{MinLng: 120.9757, MaxLng: 120.9835, MinLat: 14.5801, MaxLat: 14.5870},
			},
			{
				ID: "binondo", Name: "Binondo", DisplayName: "Binondo Chinatown Heritage District",
				ShortName: "Binondo", District: "Binondo, Manila",
				Center: geo.Pt(120.9745, 14.6000), Zoom: 15.5,
				Bounds: geo.Bounds{MinLng: 120.9710, MaxLng: 120.9780, MinLat: 14.5940, MaxLat: 14.6050},
			},
			{
				ID: "intramuros", Name: "Intramuros", DisplayName: "Intramuros Walled City",
				ShortName: "Intramuros", District: "Intramuros, Manila",
				Center: geo.Pt(120.9750, 14.5890), Zoom: 15.5,
				Bounds: geo.Bounds{MinLng: 120.9710, MaxLng: 120.9800, MinLat: 14.5830, MaxLat: 14.5940},
			},
			{
				ID: "pasigRiver", Name: "Pasig River", DisplayName: "Pasig River Esplanade",
				ShortName: "Pasig River", District: "Manila-Makati Corridor",
				Center: geo.Pt(120.9860, 14.5950), Zoom: 14.5,
				Bounds: geo.Bounds{MinLng: 120.9780, MaxLng: 120.9950, MinLat: 14.5880, MaxLat: 14.6020},
			},
		},
	}
}
