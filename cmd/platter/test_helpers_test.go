package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"platter/internal/config"
	"platter/internal/disc"
	"platter/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	catalog    *httptest.Server
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("flac", "lame"))

	// Keep every check offline: the local TOC digest stands in for the disc
	// id tool, and the catalog endpoint answers 404 for every disc.
	cfg.DiscID.Binary = ""
	cfg.Gracenote.ClientID = ""
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(catalog.Close)
	cfg.MusicBrainz.BaseURL = catalog.URL

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		catalog:    catalog,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeCaptureDir creates a directory of fake CDDA capture files, one per
// track.
func writeCaptureDir(t *testing.T, base string, tracks int) string {
	t.Helper()
	dir := filepath.Join(base, "capture")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir capture dir: %v", err)
	}
	for i := 1; i <= tracks; i++ {
		name := filepath.Join(dir, trackFileName(i))
		if err := os.WriteFile(name, []byte("RIFF"), 0o644); err != nil {
			t.Fatalf("write capture file: %v", err)
		}
	}
	return dir
}

func trackFileName(number int) string {
	return "track" + string(rune('0'+number/10)) + string(rune('0'+number%10)) + ".wav"
}

// localDiscID computes the fingerprint the local TOC digest assigns to a
// disc, matching what config without a disc id tool produces.
func localDiscID(t *testing.T, tocSpec string) string {
	t.Helper()
	toc, err := disc.Parse(tocSpec)
	if err != nil {
		t.Fatalf("parse toc: %v", err)
	}
	return toc.Digest()
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
