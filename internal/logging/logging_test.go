package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseLevelUnknown(t *testing.T) {
	if _, err := ParseLevel("bogus"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewTraceLevelLabel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "trace", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.Log(context.Background(), LevelTrace, "byte received")
	if !strings.Contains(buf.String(), "TRACE") {
		t.Errorf("output %q does not contain TRACE label", buf.String())
	}
}
