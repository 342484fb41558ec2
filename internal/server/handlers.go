package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/urbansense/canopysim/internal/feed"
	"github.com/urbansense/canopysim/pkg/analytics"
	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/gov"
	"github.com/urbansense/canopysim/pkg/scene2d"
	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/site"
	"github.com/urbansense/canopysim/pkg/validation"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"sites":  len(s.feed.Sites()),
		"hours":  s.feed.Hours(),
	})
}

type siteInfo struct {
	site.Location
	Latest *time.Time `json:"latest,omitempty"`
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request) {
	out := make([]siteInfo, 0, len(s.feed.Sites()))
	for _, fs := range s.feed.Sites() {
		info := siteInfo{Location: site.Location{ID: fs.ID, Bounds: fs.Bounds}}
		if loc := s.catalog.Location(fs.ID); loc != nil {
			info.Location = *loc
		}
		if st, ok, _ := s.feed.Latest(fs.ID); ok {
			at := st.Sim.GeneratedAt
			info.Latest = &at
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetHorizon(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"hours": s.feed.Hours()})
}

func (s *Server) handleSetHorizon(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding body: %w", err))
		return
	}
	if err := s.feed.SetHours(body.Hours); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.log.Info("horizon changed", "hours", body.Hours)
	writeJSON(w, http.StatusOK, map[string]int{"hours": body.Hours})
}

// state returns the latest feed state for the request's site, generating
// one on the spot when the feed has not produced it yet.
func (s *Server) state(w http.ResponseWriter, r *http.Request) (feed.Site, feed.State, bool) {
	id := mux.Vars(r)["site"]
	fs, ok := s.feed.Site(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", feed.ErrUnknownSite, id))
		return feed.Site{}, feed.State{}, false
	}
	if st, ok, _ := s.feed.Latest(id); ok {
		return fs, st, true
	}
	st, err := s.generate(fs, s.feed.Hours())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return feed.Site{}, feed.State{}, false
	}
	return fs, st, true
}

func (s *Server) generate(fs feed.Site, hours int) (feed.State, error) {
	rng := s.newSource()
	snap, err := s.gen.Generate(rng, sim.Request{Hours: hours, Bounds: &fs.Bounds})
	if err != nil {
		return feed.State{}, err
	}
	return feed.State{Sim: snap, Gov: gov.Generate(rng, s.now())}, nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	fs, st, ok := s.state(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("hours")
	if q == "" {
		writeJSON(w, http.StatusOK, st.Sim)
		return
	}
	hours, err := strconv.Atoi(q)
	if err != nil || !sim.ValidHorizon(hours) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", sim.ErrInvalidHorizon, q))
		return
	}
	if hours == st.Sim.Hours {
		writeJSON(w, http.StatusOK, st.Sim)
		return
	}
	adhoc, err := s.generate(fs, hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, adhoc.Sim)
}

type historyItem struct {
	ID           uuid.UUID          `json:"id"`
	At           time.Time          `json:"at"`
	Hours        int                `json:"hours"`
	KPIs         sim.KPIs           `json:"kpis"`
	StatusCounts map[sim.Status]int `json:"statusCounts"`
	PowerKW      float64            `json:"powerKw"`
	Uptime       float64            `json:"networkUptime"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["site"]
	entries, err := s.feed.History(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	out := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyItem{
			ID:           e.ID,
			At:           e.At,
			Hours:        e.Value.Sim.Hours,
			KPIs:         e.Value.Sim.KPIs,
			StatusCounts: e.Value.Sim.StatusCounts(),
			PowerKW:      e.Value.Gov.PowerKW,
			Uptime:       e.Value.Gov.NetworkUptime,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHistoryEntry returns one recorded state in full, looked up by the
// snapshot id the sinks published it under.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["entry"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid snapshot id %q", vars["entry"]))
		return
	}
	e, err := s.feed.Entry(vars["site"], id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCanopies(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.state(w, r)
	if !ok {
		return
	}
	assets, err := gov.Assets(st.Sim, st.Gov.MaintenanceDue)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.state(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["canopy"]
	for _, c := range st.Sim.Canopies {
		if c.ID == id {
			writeJSON(w, http.StatusOK, gov.Trace(s.newSource(), c, s.now()))
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("unknown canopy %s", id))
}

func (s *Server) handlePolygon(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fs, ok := s.feed.Site(vars["site"])
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", feed.ErrUnknownSite, vars["site"]))
		return
	}
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	grid := s.gen.Grid()
	if errX != nil || errY != nil || x < 0 || y < 0 || x >= grid.W || y >= grid.H {
		writeError(w, http.StatusBadRequest, fmt.Errorf("cell (%s,%s) outside the %dx%d grid", vars["x"], vars["y"], grid.W, grid.H))
		return
	}
	poly, err := geo.CellToPolygon(x, y, grid.W, grid.H, fs.Bounds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":       "Feature",
		"geometry":   poly.GeoJSON(),
		"properties": map[string]any{"site": fs.ID, "x": x, "y": y, "id": fmt.Sprintf("%d-%d", x, y)},
	})
}

// handleLocate resolves a map position to the snapshot cell under it.
func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	pt := geo.Pt(lng, lat)
	if errLng != nil || errLat != nil || !pt.IsFinite() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid position lng=%q lat=%q", q.Get("lng"), q.Get("lat")))
		return
	}
	fs, st, ok := s.state(w, r)
	if !ok {
		return
	}
	x, y, ok := st.Sim.Grid().Locate(pt)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("position %v lies outside %s", pt, fs.ID))
		return
	}
	cell := st.Sim.Cell(x, y)
	if cell == nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("snapshot has no cell %d-%d", x, y))
		return
	}
	writeJSON(w, http.StatusOK, cell)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	fs, st, ok := s.state(w, r)
	if !ok {
		return
	}
	scene, err := scene2d.Assemble2D(fs.ID, st.Sim)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

type govResponse struct {
	gov.Snapshot
	Assets []gov.Asset `json:"assets"`
	Triage []gov.Item  `json:"triage"`
}

func (s *Server) handleGov(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.state(w, r)
	if !ok {
		return
	}
	assets, err := gov.Assets(st.Sim, st.Gov.MaintenanceDue)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	triage := gov.Triage(assets)
	if triage == nil {
		triage = []gov.Item{}
	}
	writeJSON(w, http.StatusOK, govResponse{Snapshot: st.Gov, Assets: assets, Triage: triage})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.state(w, r)
	if !ok {
		return
	}
	corr, report := analytics.Analyze(st.Sim)
	status := http.StatusOK
	if !report.Valid {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, struct {
		Correlation *analytics.Correlation `json:"correlation"`
		Funnel      analytics.FunnelTotals `json:"funnel"`
		Report      *validation.Report     `json:"report"`
	}{corr, analytics.Funnel(st.Sim.EngagementSites), report})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if q := r.URL.Query().Get("sites"); q != "" {
		for _, id := range strings.Split(q, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	} else {
		for _, fs := range s.feed.Sites() {
			ids = append(ids, fs.ID)
		}
	}

	data := make([]analytics.LocationData, 0, len(ids))
	for _, id := range ids {
		fs, ok := s.feed.Site(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", feed.ErrUnknownSite, id))
			return
		}
		st, ok, _ := s.feed.Latest(id)
		if !ok {
			var err error
			if st, err = s.generate(fs, s.feed.Hours()); err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
		}
		data = append(data, analytics.LocationData{ID: id, Sim: st.Sim, Gov: st.Gov})
	}

	o, err := analytics.Aggregate(data)
	switch {
	case errors.Is(err, analytics.ErrNoLocations), errors.Is(err, analytics.ErrTooManyLocations):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, o)
	}
}

func (s *Server) handleAmbient(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sim.GenerateAmbient(s.newSource(), s.now()))
}
