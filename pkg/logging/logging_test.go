package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/sandrolain/gomdx/pkg/config"
	"github.com/sandrolain/gomdx/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := logging.ParseLevel(tt.in); got != tt.want {
				t.Fatalf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, config.LogConfig{Level: "WARN", Format: "JSON"})
	logger.Info("dropped")
	logger.Warn("kept", "cells", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d records, want 1:\n%s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatal(err)
	}
	if record["msg"] != "kept" || record["cells"] != 3.0 {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, config.LogConfig{Level: "DEBUG", Format: "console"})
	logger.Debug("resolved", "function", "Sum")
	if out := buf.String(); !strings.Contains(out, "msg=resolved") || !strings.Contains(out, "function=Sum") {
		t.Fatalf("unexpected text output %q", out)
	}
}
