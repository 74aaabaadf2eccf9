package stlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelWarn, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown key=value") {
		t.Fatalf("expected warn record with attrs, got %q", out)
	}
}

func TestLoggerWithKeepsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.LevelDebug, &buf).With("component", "store")

	logger.Debug("cleared", "keys", 2)

	out := buf.String()
	if !strings.Contains(out, "component=store, keys=2") {
		t.Fatalf("expected persistent attrs before record attrs, got %q", out)
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	logger := Discard()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("discard logger should not be enabled for errors")
	}
}
