package logging

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "platter.log")
	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("ripping track", Int("track", 3), String("title", "Blue in Green"))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(raw, &entry); err != nil {
		t.Fatalf("log line not JSON: %v\n%s", err, raw)
	}
	if entry["msg"] != "ripping track" {
		t.Fatalf("unexpected message %v", entry["msg"])
	}
	if entry["track"] != float64(3) || entry["title"] != "Blue in Green" {
		t.Fatalf("attrs missing: %v", entry)
	}
}

func TestNewConsoleFormatAndLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platter.log")
	logger, err := New(Options{Level: "warn", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept", Bool("clipping", true))

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(raw)
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line leaked through warn level:\n%s", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "clipping=true") {
		t.Fatalf("warn line malformed:\n%s", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":    slog.LevelDebug,
		"WARN":     slog.LevelWarn,
		"error":    slog.LevelError,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
		"  info  ": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q): expected %v, got %v", input, want, got)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing to see", Error(errors.New("boom")))
	if logger.Enabled(nil, slog.LevelWarn) {
		t.Fatal("nop logger should not enable warn")
	}
}

func TestErrorAttrHandlesNil(t *testing.T) {
	attr := Error(nil)
	if attr.Key != "error" || attr.Value.String() != "<nil>" {
		t.Fatalf("unexpected attr %v", attr)
	}
}
