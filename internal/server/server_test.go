package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/urbansense/canopysim/internal/feed"
	"github.com/urbansense/canopysim/internal/logging"
	"github.com/urbansense/canopysim/internal/metrics"
	"github.com/urbansense/canopysim/pkg/analytics"
	"github.com/urbansense/canopysim/pkg/geo"
	"github.com/urbansense/canopysim/pkg/gov"
	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/site"
)

var now = time.Date(2025, 3, 14, 15, 42, 0, 0, time.UTC)

type fixture struct {
	srv  *Server
	feed *feed.Refresher
	h    http.Handler
}

func newFixture(t *testing.T, refresh bool) *fixture {
	t.Helper()
	cat := site.Default()
	clock := func() time.Time { return now }
	gen, err := sim.FromCatalog(cat, clock)
	if err != nil {
		t.Fatal(err)
	}
	var sites []feed.Site
	for _, loc := range cat.Locations {
		sites = append(sites, feed.Site{ID: loc.ID, Bounds: loc.Bounds})
	}
	m := metrics.New()
	f, err := feed.New(feed.Options{
		Generator: gen, Sites: sites, Seed: 3, Metrics: m,
		Log: logging.Discard(), Now: clock,
	})
	if err != nil {
		t.Fatal(err)
	}
	if refresh {
		f.Refresh(context.Background())
	}
	var seed uint64
	srv := New(Options{
		Catalog: cat, Generator: gen, Feed: f, Metrics: m,
		Log: logging.Discard(), Now: clock,
		NewSource: func() sim.Source {
			seed++
			return rand.New(rand.NewPCG(seed, seed))
		},
	})
	return &fixture{srv: srv, feed: f, h: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["sites"] != float64(4) {
		t.Errorf("body = %v", body)
	}
}

func TestSites(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites", "")
	sites := decode[[]siteInfo](t, rec)
	if len(sites) != 4 {
		t.Fatalf("got %d sites, want 4", len(sites))
	}
	if sites[0].ID != "luneta" || sites[0].DisplayName != "Luneta Park (Rizal Park)" {
		t.Errorf("first site = %+v", sites[0])
	}
	if sites[0].Latest == nil {
		t.Error("latest should be set after a refresh")
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites/binondo/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	snap := decode[sim.Snapshot](t, rec)
	if snap.Hours != sim.HoursDay || len(snap.Cells) != 24*16 {
		t.Errorf("hours=%d cells=%d", snap.Hours, len(snap.Cells))
	}
	want := site.Default().Location("binondo").Bounds
	if snap.Bounds != want {
		t.Errorf("bounds = %+v, want %+v", snap.Bounds, want)
	}

	rec = f.do(t, "GET", "/api/v1/sites/binondo/snapshot?hours=168", "")
	snap = decode[sim.Snapshot](t, rec)
	if snap.Hours != sim.HoursWeek || len(snap.AQISeries) != sim.HoursWeek {
		t.Errorf("hours=%d series=%d, want 168", snap.Hours, len(snap.AQISeries))
	}
}

func TestSnapshotWithoutRefresh(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "GET", "/api/v1/sites/luneta/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestErrors(t *testing.T) {
	f := newFixture(t, true)
	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/sites/atlantis/snapshot", http.StatusNotFound},
		{"/api/v1/sites/luneta/snapshot?hours=12", http.StatusBadRequest},
		{"/api/v1/sites/luneta/snapshot?hours=abc", http.StatusBadRequest},
		{"/api/v1/sites/luneta/cells/24/0/polygon", http.StatusBadRequest},
		{"/api/v1/sites/luneta/cells/-1/0/polygon", http.StatusBadRequest},
		{"/api/v1/sites/luneta/cells/a/0/polygon", http.StatusBadRequest},
		{"/api/v1/sites/atlantis/cells/0/0/polygon", http.StatusNotFound},
		{"/api/v1/sites/atlantis/history", http.StatusNotFound},
		{"/api/v1/sites/luneta/history/not-a-uuid", http.StatusBadRequest},
		{"/api/v1/sites/luneta/history/5f0c7a4e-3b1d-4c8e-9a2f-6d1e0b7c9a31", http.StatusNotFound},
		{"/api/v1/sites/luneta/cells/locate?lng=0&lat=0", http.StatusNotFound},
		{"/api/v1/sites/luneta/cells/locate?lng=abc&lat=14.58", http.StatusBadRequest},
		{"/api/v1/sites/luneta/cells/locate?lng=NaN&lat=14.58", http.StatusBadRequest},
		{"/api/v1/sites/atlantis/cells/locate?lng=120.98&lat=14.58", http.StatusNotFound},
		{"/api/v1/sites/luneta/canopies/CAN-99/trace", http.StatusNotFound},
		{"/api/v1/overview?sites=luneta,atlantis", http.StatusNotFound},
		{"/api/v1/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := f.do(t, "GET", tt.path, "")
		if rec.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.code)
			continue
		}
		body := decode[map[string]string](t, rec)
		if body["error"] == "" {
			t.Errorf("GET %s: missing error message", tt.path)
		}
	}
}

func TestPolygon(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "GET", "/api/v1/sites/luneta/cells/0/0/polygon", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var feature struct {
		Type     string      `json:"type"`
		Geometry geo.GeoJSON `json:"geometry"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&feature); err != nil {
		t.Fatal(err)
	}
	if feature.Type != "Feature" || feature.Geometry.Type != "Polygon" {
		t.Errorf("feature = %+v", feature)
	}
	ring := feature.Geometry.Coordinates[0]
	b := site.Default().Location("luneta").Bounds
	if len(ring) != 5 || ring[0] != geo.Pt(b.MinLng, b.MinLat) || ring[0] != ring[4] {
		t.Errorf("ring = %v", ring)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, true)
	f.feed.Refresh(context.Background())
	rec := f.do(t, "GET", "/api/v1/sites/luneta/history", "")
	items := decode[[]historyItem](t, rec)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID == items[1].ID {
		t.Error("history ids should differ")
	}
	rec = f.do(t, "GET", "/api/v1/sites/luneta/history/"+items[0].ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history entry status = %d: %s", rec.Code, rec.Body)
	}
	var entry struct {
		ID    string     `json:"id"`
		Value feed.State `json:"value"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatal(err)
	}
	if entry.ID != items[0].ID.String() || entry.Value.Sim == nil || entry.Value.Sim.KPIs != items[0].KPIs {
		t.Errorf("history entry = %s, kpis mismatch", entry.ID)
	}

	total := 0
	for _, n := range items[1].StatusCounts {
		total += n
	}
	if total != len(site.Default().Canopies) {
		t.Errorf("status counts sum to %d, want %d", total, len(site.Default().Canopies))
	}
}

func TestCanopiesAndGov(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites/intramuros/canopies", "")
	assets := decode[[]gov.Asset](t, rec)
	if len(assets) != 6 {
		t.Fatalf("got %d assets, want 6", len(assets))
	}
	b := site.Default().Location("intramuros").Bounds
	for _, a := range assets {
		if a.Lng < b.MinLng || a.Lng > b.MaxLng || a.Lat < b.MinLat || a.Lat > b.MaxLat {
			t.Errorf("asset %s at (%v,%v) outside bounds", a.ID, a.Lng, a.Lat)
		}
	}

	rec = f.do(t, "GET", "/api/v1/sites/intramuros/gov", "")
	var g govResponse
	if err := json.NewDecoder(rec.Body).Decode(&g); err != nil {
		t.Fatal(err)
	}
	if len(g.EnergySeries) != 24 || len(g.Assets) != 6 || g.Triage == nil {
		t.Errorf("gov response energy=%d assets=%d triage=%v", len(g.EnergySeries), len(g.Assets), g.Triage)
	}
}

func TestTrace(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites/luneta/canopies/CAN-1/trace", "")
	points := decode[[]gov.TracePoint](t, rec)
	if len(points) != 60 {
		t.Errorf("got %d points, want 60", len(points))
	}
}

func TestCorrelation(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites/luneta/correlation", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Correlation analytics.Correlation  `json:"correlation"`
		Funnel      analytics.FunnelTotals `json:"funnel"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Correlation.Hours) != 24 || body.Funnel.Passers == 0 {
		t.Errorf("correlation hours=%d passers=%d", len(body.Correlation.Hours), body.Funnel.Passers)
	}
}

func TestOverview(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/overview?sites=luneta,binondo", "")
	o := decode[analytics.Overview](t, rec)
	if o.LocationCount != 2 || len(o.Canopies) != 12 {
		t.Errorf("overview count=%d canopies=%d", o.LocationCount, len(o.Canopies))
	}

	rec = f.do(t, "GET", "/api/v1/overview", "")
	o = decode[analytics.Overview](t, rec)
	if o.LocationCount != 4 {
		t.Errorf("default overview count = %d, want 4", o.LocationCount)
	}

	rec = f.do(t, "GET", "/api/v1/overview?sites=luneta,binondo,intramuros,pasigRiver,luneta", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("five locations = %d, want 400", rec.Code)
	}
}

func TestAmbient(t *testing.T) {
	f := newFixture(t, false)
	a := decode[sim.Ambient](t, f.do(t, "GET", "/api/v1/ambient", ""))
	if a.AirQualityIndex < 40 || a.AirQualityIndex > 90 || !a.Timestamp.Equal(now) {
		t.Errorf("ambient = %+v", a)
	}
}

func TestHorizon(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, "PUT", "/api/v1/horizon", `{"hours":168}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if f.feed.Hours() != sim.HoursWeek {
		t.Errorf("feed hours = %d, want 168", f.feed.Hours())
	}
	if rec := f.do(t, "PUT", "/api/v1/horizon", `{"hours":5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid horizon = %d, want 400", rec.Code)
	}
	if rec := f.do(t, "PUT", "/api/v1/horizon", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", rec.Code)
	}
	body := decode[map[string]int](t, f.do(t, "GET", "/api/v1/horizon", ""))
	if body["hours"] != sim.HoursWeek {
		t.Errorf("GET horizon = %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, "GET", "/api/v1/sites", "")
	f.do(t, "GET", "/api/v1/sites/luneta/snapshot", "")
	rec := f.do(t, "GET", "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		`canopysim_http_requests_total{code="200",route="/api/v1/sites"} 1`,
		`canopysim_http_requests_total{code="200",route="/api/v1/sites/{site}/snapshot"} 1`,
		`canopysim_snapshots_generated_total{site="luneta"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t, false)
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("missing Access-Control-Allow-Origin header")
	}
}

func TestMap(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, "GET", "/api/v1/sites/pasigRiver/map", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Type     string            `json:"type"`
		Metadata map[string]any    `json:"metadata"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Type != "FeatureCollection" || body.Metadata["site"] != "pasigRiver" {
		t.Errorf("type=%q metadata=%v", body.Type, body.Metadata)
	}
	if len(body.Features) != 384+6+5 {
		t.Errorf("got %d features, want %d", len(body.Features), 384+6+5)
	}
}

func TestLocate(t *testing.T) {
	f := newFixture(t, true)
	b := site.Default().Location("luneta").Bounds
	pt, err := geo.CanopyToLngLat(5, 3, 24, 16, b)
	if err != nil {
		t.Fatal(err)
	}
	path := fmt.Sprintf("/api/v1/sites/luneta/cells/locate?lng=%s&lat=%s",
		strconv.FormatFloat(pt.Lng(), 'f', -1, 64), strconv.FormatFloat(pt.Lat(), 'f', -1, 64))
	rec := f.do(t, "GET", path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	got := decode[sim.Cell](t, rec)
	st, _, _ := f.feed.Latest("luneta")
	if want := *st.Sim.Cell(5, 3); got != want {
		t.Errorf("cell = %+v, want %+v", got, want)
	}
}
