package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, true, slog.LevelInfo)

	logger.Info("step done", "step", "open columns tab")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "step done" {
		t.Errorf("expected msg 'step done', got %q", m["msg"])
	}
	if m["step"] != "open columns tab" {
		t.Errorf("expected step attribute, got %q", m["step"])
	}
}

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("step failed", "code", "ELEMENT_NOT_FOUND")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "code=ELEMENT_NOT_FOUND") {
		t.Errorf("expected text output containing code, got: %s", out)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard() returned nil")
	}
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at error level")
	}
}
