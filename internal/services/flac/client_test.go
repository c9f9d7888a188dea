package flac

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

type recordingExecutor struct {
	binary string
	args   []string
	output string
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string, output io.Writer) error {
	r.binary = binary
	r.args = args
	if output != nil && r.output != "" {
		if _, err := io.WriteString(output, r.output); err != nil {
			return err
		}
	}
	return r.err
}

func TestEncodeBuildsTaggedInvocation(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("flac", "--keep-foreign-metadata", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	tags := map[string][]string{
		"TITLE": {"So What"},
		"GENRE": {"Jazz", "Bop"},
	}
	if err := client.Encode(context.Background(), "/in/01.wav", "/out/01.flac", tags, "/tmp/cover.jpg", ""); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []string{
		"--keep-foreign-metadata",
		"--picture=/tmp/cover.jpg",
		"--tag=GENRE=Jazz",
		"--tag=GENRE=Bop",
		"--tag=TITLE=So What",
		"--output-name=/out/01.flac",
		"/in/01.wav",
	}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("expected args %v, got %v", want, exec.args)
	}
	if exec.binary != "flac" {
		t.Fatalf("unexpected binary %q", exec.binary)
	}
}

func TestEncodeOmitsPictureWithoutCover(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("flac", "", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Encode(context.Background(), "src", "dst", nil, "", ""); err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, arg := range exec.args {
		if arg == "--picture=" {
			t.Fatal("picture flag present without a cover")
		}
	}
}

func TestDecodeUsesDecodeOptions(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("flac", "", "--force", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Decode(context.Background(), "/a.flac", "/a.wav", ""); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"--decode", "--force", "--output-name=/a.wav", "/a.flac"}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("expected args %v, got %v", want, exec.args)
	}
}

func TestRunTruncatesLogBetweenInvocations(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "encode.log")
	exec := &recordingExecutor{output: "first run output\n"}
	client, err := New("flac", "", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Encode(context.Background(), "src", "dst", nil, "", logPath); err != nil {
		t.Fatalf("first encode: %v", err)
	}

	exec.output = "second\n"
	if err := client.Encode(context.Background(), "src", "dst", nil, "", logPath); err != nil {
		t.Fatalf("second encode: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("expected log truncated to latest run, got %q", data)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New("  ", "", ""); err == nil {
		t.Fatal("expected error for blank binary")
	}
}
