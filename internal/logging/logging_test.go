package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urbansense/canopysim/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, closeFn, err := newWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	log.Debug("hidden")
	log.Info("refreshed", "site", "luneta")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["site"] != "luneta" || rec["msg"] != "refreshed" {
		t.Errorf("record = %v", rec)
	}
}

func TestFileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canopysim.log")
	var buf bytes.Buffer
	log, closeFn, err := newWithWriter(config.LogConfig{File: path}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello")
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("file %q stdout %q should both contain the record", data, buf.String())
	}
}
