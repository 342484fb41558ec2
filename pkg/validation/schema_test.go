package validation

import (
	"testing"

	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/site"
)

func TestValidateSchemaDefault(t *testing.T) {
	r := ValidateSchema(site.Default())
	if !r.Valid {
		t.Errorf("expected valid report, got %d errors: %v", len(r.Errors), r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", r.Warnings)
	}
	// Six canopies, network covers five.
	if len(r.Info) != 1 {
		t.Errorf("expected 1 info, got %d", len(r.Info))
	}
}

func TestValidateSchemaGrid(t *testing.T) {
	c := site.Default()
	c.Grid.Width = 0
	r := ValidateSchema(c)
	assertHasError(t, r, "grid")
}

func TestValidateSchemaNoCanopies(t *testing.T) {
	c := site.Default()
	c.Canopies = nil
	r := ValidateSchema(c)
	assertHasError(t, r, "canopies")
}

func TestValidateSchemaCanopyOutsideGrid(t *testing.T) {
	c := site.Default()
	c.Canopies[2].X = c.Grid.Width
	r := ValidateSchema(c)
	assertHasError(t, r, "canopies[2]")
}

func TestValidateSchemaDuplicateCanopy(t *testing.T) {
	c := site.Default()
	c.Canopies[0].ID = "CAN-X"
	c.Canopies[1].ID = "CAN-X"
	r := ValidateSchema(c)
	assertHasError(t, r, "canopies[1].id")
}

func TestValidateSchemaEngagement(t *testing.T) {
	c := site.Default()
	c.EngagementSites[1].Passers = 0
	c.EngagementSites[3].ID = ""
	r := ValidateSchema(c)
	assertHasError(t, r, "engagement_sites[1].passers")
	assertHasError(t, r, "engagement_sites[3].id")

	c = site.Default()
	c.EngagementSites = nil
	r = ValidateSchema(c)
	if !r.Valid {
		t.Errorf("missing engagement sites should only warn, got %v", r.Errors)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(r.Warnings))
	}
}

func TestValidateSchemaLocations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *site.Catalog)
		path   string
	}{
		{"none", func(c *site.Catalog) { c.Locations = nil }, "locations"},
		{"empty id", func(c *site.Catalog) { c.Locations[0].ID = "" }, "locations[0].id"},
		{"duplicate id", func(c *site.Catalog) { c.Locations[2].ID = c.Locations[1].ID }, "locations[2].id"},
		{"inverted bounds", func(c *site.Catalog) {
			b := &c.Locations[1].Bounds
			b.MinLng, b.MaxLng = b.MaxLng, b.MinLng
		}, "locations[1].bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := site.Default()
			tt.mutate(c)
			assertHasError(t, ValidateSchema(c), tt.path)
		})
	}
}

func TestValidateSchemaCenterOutsideBounds(t *testing.T) {
	c := site.Default()
	c.Locations[0].Center = geo.Pt(121.5, 14.5)
	r := ValidateSchema(c)
	if !r.Valid {
		t.Fatalf("center outside bounds should only warn, got %v", r.Errors)
	}
	found := false
	for _, w := range r.Warnings {
		if w.Path == "locations[0].center" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning at locations[0].center, got %v", r.Warnings)
	}
}

func assertHasError(t *testing.T, r *Report, path string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Path == path {
			return
		}
	}
	t.Errorf("expected error with path %q, got errors: %v", path, r.Errors)
}
