package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestProductionLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("production", &buf)
	log.Debug("hidden")
	log.Info("visible", "prediction_id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "visible" || entry["prediction_id"] != "abc" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestDevelopmentLoggerIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("development", &buf)
	log.Debug("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("staging") != slog.LevelInfo {
		t.Fatalf("staging should log at info")
	}
	if parseLevel("test") != slog.LevelDebug {
		t.Fatalf("unknown env should log at debug")
	}
}
