package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.FLAC.Naming.TrackFileExt != ".flac" {
		t.Fatalf("unexpected flac extension %q", cfg.FLAC.Naming.TrackFileExt)
	}
	if cfg.MP3.Naming.TrackFileExt != ".mp3" {
		t.Fatalf("unexpected mp3 extension %q", cfg.MP3.Naming.TrackFileExt)
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	cfg, resolved, err := Load(path)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}

	defaults := Default()
	defaults.Normalize()
	if cfg.HTTP.UserAgent != defaults.HTTP.UserAgent {
		t.Fatalf("user agent drifted: %q vs %q", cfg.HTTP.UserAgent, defaults.HTTP.UserAgent)
	}
	if cfg.FLAC.Naming != defaults.FLAC.Naming {
		t.Fatalf("flac naming drifted:\nsample:  %+v\ndefault: %+v", cfg.FLAC.Naming, defaults.FLAC.Naming)
	}
	if cfg.MP3.Naming != defaults.MP3.Naming {
		t.Fatalf("mp3 naming drifted:\nsample:  %+v\ndefault: %+v", cfg.MP3.Naming, defaults.MP3.Naming)
	}
	if cfg.Pipeline.MaxClippingRetries != defaults.Pipeline.MaxClippingRetries {
		t.Fatalf("clipping retries drifted: %d vs %d",
			cfg.Pipeline.MaxClippingRetries, defaults.Pipeline.MaxClippingRetries)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error for existing config file")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.TimeoutSeconds != Default().HTTP.TimeoutSeconds {
		t.Fatalf("defaults not applied: %+v", cfg.HTTP)
	}
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
flac_library_dir = "` + filepath.Join(dir, "flac") + `"

[pipeline]
max_clipping_retries = 3

[flac.naming]
library_trie_level = 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Paths.FLACLibraryDir != filepath.Join(dir, "flac") {
		t.Fatalf("override lost: %q", cfg.Paths.FLACLibraryDir)
	}
	if cfg.Pipeline.MaxClippingRetries != 3 {
		t.Fatalf("override lost: %d", cfg.Pipeline.MaxClippingRetries)
	}
	if cfg.FLAC.Naming.TrieLevel != 2 {
		t.Fatalf("override lost: %d", cfg.FLAC.Naming.TrieLevel)
	}
	// Unset fields pick up defaults through Normalize.
	if cfg.Paths.MP3LibraryDir == "" || cfg.FLAC.Naming.TrackFilename == "" {
		t.Fatalf("defaults not backfilled: %+v", cfg)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[paths\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"missing flac library", func(c *Config) { c.Paths.FLACLibraryDir = "" }, "flac_library_dir"},
		{"missing journal path", func(c *Config) { c.Paths.JournalPath = "" }, "journal_path"},
		{"extension without dot", func(c *Config) { c.FLAC.Naming.TrackFileExt = "flac" }, "start with a dot"},
		{"unknown trie key", func(c *Config) { c.MP3.Naming.TrieKey = "track_title" }, "library_trie_key"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Normalize()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.substr, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("PLATTER_TEST_DIR", "/srv/music")
	if got := ExpandPath("$PLATTER_TEST_DIR/flac"); got != "/srv/music/flac" {
		t.Fatalf("env expansion failed: %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if got := ExpandPath("~/music"); got != filepath.Join(home, "music") {
		t.Fatalf("tilde expansion failed: %q", got)
	}
}

func TestNormalizeClampsNegativeTrieLevel(t *testing.T) {
	cfg := Default()
	cfg.FLAC.Naming.TrieLevel = -3
	cfg.Normalize()
	if cfg.FLAC.Naming.TrieLevel != 0 {
		t.Fatalf("expected clamp to 0, got %d", cfg.FLAC.Naming.TrieLevel)
	}
}
