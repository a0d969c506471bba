package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"semsearch/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Debug("search completed", "results", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "search completed" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["results"] != float64(3) {
		t.Errorf("unexpected results attr: %v", entry["results"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info must be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, _ := ParseLevel("DEBUG"); lvl != slog.LevelDebug {
		t.Errorf("expected debug, got %v", lvl)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}
