package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARNING": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"Debug":   slog.LevelDebug,
	}
	for in, want := range tests {
		got, err := parseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "device", "/dev/input/event3")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "service=dozed") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("proximity listener enabled")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %s: %v", buf.String(), err)
	}
	if rec["service"] != "dozed" || rec["msg"] != "proximity listener enabled" {
		t.Fatalf("unexpected record: %v", rec)
	}

	if _, err := newLogger(LoggingConfig{Level: "info", Format: "xml"}, &buf); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
