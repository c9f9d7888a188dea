package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platter/internal/preflight"
	"platter/internal/testsupport"
)

func TestCheckBinaryFindsStubOnPath(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("flac"))

	result := preflight.CheckBinary("flac", "flac")
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if !strings.HasSuffix(result.Detail, "/flac") {
		t.Fatalf("expected resolved path in detail, got %q", result.Detail)
	}
}

func TestCheckBinaryMissing(t *testing.T) {
	result := preflight.CheckBinary("flac", "definitely-not-a-real-binary-name")
	if result.Passed {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.Detail, "not found on PATH") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckBinaryUnconfigured(t *testing.T) {
	result := preflight.CheckBinary("disc id tool", "  ")
	if result.Passed || result.Detail != "binary not configured" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("work", dir); !result.Passed {
		t.Fatalf("expected pass for %s, got %+v", dir, result)
	}

	missing := filepath.Join(dir, "absent")
	result := preflight.CheckDirectoryAccess("work", missing)
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected result %+v", result)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = preflight.CheckDirectoryAccess("work", file)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace("work", dir, 1); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	// An absurd requirement cannot be satisfied by any filesystem.
	result := preflight.CheckFreeSpace("work", dir, 1<<62)
	if result.Passed {
		t.Fatalf("expected failure, got %+v", result)
	}
	if !strings.Contains(result.Detail, "required") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckService(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result := preflight.CheckService(context.Background(), "MusicBrainz", server.URL, "platter/test")
	if !result.Passed {
		t.Fatalf("any HTTP response should count as reachable, got %+v", result)
	}
	if gotAgent != "platter/test" {
		t.Fatalf("user agent not forwarded: %q", gotAgent)
	}

	server.Close()
	result = preflight.CheckService(context.Background(), "MusicBrainz", server.URL, "")
	if result.Passed || !strings.Contains(result.Detail, "unreachable") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAllAgainstTestConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("flac", "lame", "discid"))
	cfg.MusicBrainz.BaseURL = ""
	cfg.Gracenote.ClientID = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) != 8 {
		t.Fatalf("expected 8 checks, got %d: %+v", len(results), results)
	}
	if !preflight.AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", results)
	}
}

func TestAllPassed(t *testing.T) {
	if !preflight.AllPassed(nil) {
		t.Fatal("empty result set should pass")
	}
	results := []preflight.Result{{Passed: true}, {Passed: false}}
	if preflight.AllPassed(results) {
		t.Fatal("expected failure to propagate")
	}
}
