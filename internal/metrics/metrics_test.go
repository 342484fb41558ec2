package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/urbansense/canopysim/pkg/sim"
)

func TestObserveSnapshot(t *testing.T) {
	m := New()
	s := &sim.Snapshot{Canopies: []sim.Canopy{
		{Status: sim.StatusOK}, {Status: sim.StatusAlert}, {Status: sim.StatusAlert},
	}}
	m.ObserveSnapshot("luneta", s, 3*time.Millisecond)
	m.ObserveSnapshot("luneta", s, 2*time.Millisecond)

	if got := testutil.ToFloat64(m.snapshots.WithLabelValues("luneta")); got != 2 {
		t.Errorf("snapshots = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.canopyStatus.WithLabelValues("luneta", "alert")); got != 2 {
		t.Errorf("alert gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.canopyStatus.WithLabelValues("luneta", "busy")); got != 0 {
		t.Errorf("busy gauge = %v, want 0", got)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.SinkError("kafka")
	m.HTTPRequest("/api/v1/sites", 200)
	m.HTTPRequest("/api/v1/sites", 200)
	if got := testutil.ToFloat64(m.sinkErrors.WithLabelValues("kafka")); got != 1 {
		t.Errorf("sink errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/sites", "200")); got != 2 {
		t.Errorf("http requests = %v, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.SinkError("mqtt")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `canopysim_sink_errors_total{sink="mqtt"} 1`) {
		t.Errorf("metrics output missing sink counter:\n%s", body)
	}
}

func TestPrivateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	New()
	New()
}
