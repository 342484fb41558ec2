package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urbansense/canopysim/pkg/sim"
	"github.com/urbansense/canopysim/pkg/validation"
)

func TestRunGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := runGenerate(&buf, generateOptions{hours: sim.HoursWeek, site: "binondo", seed: 4}); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	var snap sim.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("output is not a snapshot: %v", err)
	}
	if snap.Hours != sim.HoursWeek || snap.Bounds.MinLat != 14.5940 {
		t.Errorf("hours=%d bounds=%+v", snap.Hours, snap.Bounds)
	}
	// Not a terminal, so compact output on one line.
	if strings.Count(buf.String(), "\n") != 1 {
		t.Error("expected compact JSON when not writing to a terminal")
	}
}

func TestRunGenerateErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := runGenerate(&buf, generateOptions{hours: 12, seed: 1}); !errors.Is(err, sim.ErrInvalidHorizon) {
		t.Errorf("hours=12: err = %v, want ErrInvalidHorizon", err)
	}
	if err := runGenerate(&buf, generateOptions{hours: 24, site: "atlantis"}); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	if err := runValidate(&buf, "../../examples/manila"); err != nil {
		t.Fatalf("runValidate: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Result: VALID") {
		t.Errorf("output = %q", buf.String())
	}

	dir := t.TempDir()
	bad := "grid: {width: 0, height: 16}\ncanopies: [{x: 1, y: 1}]\nlocations: []\n"
	if err := os.WriteFile(filepath.Join(dir, "sites.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	err := runValidate(&buf, dir)
	if !errors.Is(err, errInvalid) {
		t.Errorf("err = %v, want errInvalid", err)
	} else if !strings.Contains(err.Error(), "grid: grid dimensions") {
		t.Errorf("err = %v, want the first failure named", err)
	}
	if !strings.Contains(buf.String(), "Result: INVALID") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunCheck(t *testing.T) {
	var buf bytes.Buffer
	if err := runCheck(&buf, checkOptions{hours: sim.HoursDay, seed: 1, runs: 3}); err != nil {
		t.Fatalf("runCheck: %v\n%s", err, buf.String())
	}
	out := buf.String()
	if strings.Contains(out, "FAIL") || !strings.Contains(out, "Result: VALID") {
		t.Errorf("output = %s", out)
	}
	if err := runCheck(&buf, checkOptions{hours: sim.HoursDay, runs: 0}); err == nil {
		t.Error("expected error for zero runs")
	}
}

func TestPrintValidationReport(t *testing.T) {
	r := validation.NewReport()
	r.AddError(validation.Result{
		Level: validation.LevelSchema, Message: "grid too small", Path: "grid",
		ActualValue: "0x16", Expected: "width > 0", Suggestions: []string{"Set width"},
	})
	r.AddWarning(validation.Result{Level: validation.LevelSchema, Message: "no engagement sites"})
	var buf bytes.Buffer
	printValidationReport(&buf, r)
	for _, want := range []string{
		"ERRORS (1):", "[schema] grid too small", "-> grid = 0x16", "expected: width > 0",
		"* Set width", "WARNINGS (1):", "Result: INVALID (1 errors, 1 warnings, 0 info)",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
