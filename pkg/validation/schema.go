package validation

import (
	"fmt"

	"github.com/urbansense/canopysim/pkg/site"
)

// ValidateSchema performs structural validation on a site catalog before
// any generator is built from it.
func ValidateSchema(c *site.Catalog) *Report {
	r := NewReport()

	validateGrid(c, r)
	validateCanopies(c, r)
	validateEngagement(c, r)
	validateLocations(c, r)

	return r
}

func validateGrid(c *site.Catalog, r *Report) {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "grid dimensions must be greater than 0",
			Path:        "grid",
			ActualValue: fmt.Sprintf("%dx%d", c.Grid.Width, c.Grid.Height),
			Expected:    "width > 0 and height > 0",
		})
	}
}

func validateCanopies(c *site.Catalog, r *Report) {
	if len(c.Canopies) == 0 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     "canopies must contain at least one position",
			Path:        "canopies",
			Expected:    "at least 1 canopy",
			Suggestions: []string{"Add a canopy entry with x and y grid coordinates"},
		})
		return
	}

	seen := make(map[string]int, len(c.Canopies))
	for i, def := range c.Canopies {
		id := c.CanopyID(i)
		if prev, ok := seen[id]; ok {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("duplicate canopy id %q at indices %d and %d", id, prev, i),
				Path:        fmt.Sprintf("canopies[%d].id", i),
				ActualValue: id,
			})
		}
		seen[id] = i

		if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
			continue
		}
		if def.X < 0 || def.Y < 0 || def.X >= c.Grid.Width || def.Y >= c.Grid.Height {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("canopy %s at (%d,%d) lies outside the %dx%d grid", id, def.X, def.Y, c.Grid.Width, c.Grid.Height),
				Path:        fmt.Sprintf("canopies[%d]", i),
				ActualValue: fmt.Sprintf("(%d,%d)", def.X, def.Y),
				Expected:    fmt.Sprintf("0 <= x < %d, 0 <= y < %d", c.Grid.Width, c.Grid.Height),
			})
		}
	}

	if len(c.Canopies) > 5 {
		r.AddInfo(Result{
			Level:       LevelSchema,
			Message:     "only the first 5 canopies appear in the sensor network topology",
			Path:        "canopies",
			ActualValue: len(c.Canopies),
		})
	}
}

func validateEngagement(c *site.Catalog, r *Report) {
	if len(c.EngagementSites) == 0 {
		r.AddWarning(Result{
			Level:    LevelSchema,
			Message:  "no engagement sites configured; funnels will be empty",
			Path:     "engagement_sites",
			Expected: "at least 1 site",
		})
		return
	}
	for i, s := range c.EngagementSites {
		if s.ID == "" {
			r.AddError(Result{
				Level:    LevelSchema,
				Message:  fmt.Sprintf("engagement_sites[%d] must have an id", i),
				Path:     fmt.Sprintf("engagement_sites[%d].id", i),
				Expected: "non-empty string",
			})
		}
		if s.Passers <= 0 {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("engagement site %s: passers must be greater than 0", s.ID),
				Path:        fmt.Sprintf("engagement_sites[%d].passers", i),
				ActualValue: s.Passers,
				Expected:    "> 0",
			})
		}
	}
}

func validateLocations(c *site.Catalog, r *Report) {
	if len(c.Locations) == 0 {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "locations must contain at least one pilot site",
			Path:     "locations",
			Expected: "at least 1 location",
		})
		return
	}

	seen := make(map[string]bool, len(c.Locations))
	for i, loc := range c.Locations {
		if loc.ID == "" {
			r.AddError(Result{
				Level:    LevelSchema,
				Message:  fmt.Sprintf("locations[%d] must have an id", i),
				Path:     fmt.Sprintf("locations[%d].id", i),
				Expected: "non-empty string",
			})
		} else if seen[loc.ID] {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("duplicate location id %q", loc.ID),
				Path:        fmt.Sprintf("locations[%d].id", i),
				ActualValue: loc.ID,
			})
		}
		seen[loc.ID] = true

		if err := loc.Bounds.Validate(); err != nil {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("location %s: %v", loc.ID, err),
				Path:        fmt.Sprintf("locations[%d].bounds", i),
				ActualValue: loc.Bounds,
				Expected:    "min_lng < max_lng and min_lat < max_lat",
			})
			continue
		}
		b := loc.Bounds
		if loc.Center != [2]float64{} &&
			(loc.Center.Lng() < b.MinLng || loc.Center.Lng() > b.MaxLng || loc.Center.Lat() < b.MinLat || loc.Center.Lat() > b.MaxLat) {
			r.AddWarning(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("location %s: center lies outside its bounds", loc.ID),
				Path:        fmt.Sprintf("locations[%d].center", i),
				ActualValue: loc.Center,
			})
		}
	}
}
