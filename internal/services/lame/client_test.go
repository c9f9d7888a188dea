package lame

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
)

type recordingExecutor struct {
	calls  int
	args   []string
	output string
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, _ string, args []string, output io.Writer) error {
	r.calls++
	r.args = args
	if output != nil && r.output != "" {
		if _, err := io.WriteString(output, r.output); err != nil {
			return err
		}
	}
	return r.err
}

func TestEncodeBuildsID3v2Invocation(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("lame", "-V2", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	tags := map[string][]string{
		"TIT2": {"Freddie Freeloader"},
		"TCON": {"Jazz", "Bop"},
	}
	if err := client.Encode(context.Background(), "/in.wav", "/out.mp3", tags, "/tmp/cover.jpg", 0, ""); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []string{
		"-V2",
		"--id3v2-only",
		"--ti", "/tmp/cover.jpg",
		"--tv", "TCON=Jazz, Bop",
		"--tv", "TIT2=Freddie Freeloader",
		"/in.wav", "/out.mp3",
	}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("expected args %v, got %v", want, exec.args)
	}
}

func TestEncodeAddsScaleWhenCorrectingClipping(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("lame", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Encode(context.Background(), "in", "out", nil, "", 0.87, ""); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if exec.args[0] != "--scale" || exec.args[1] != "0.87" {
		t.Fatalf("expected scale prefix, got %v", exec.args)
	}
}

func TestEncodeSwitchesToUTF16ForNonLatin1Tags(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := New("lame", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	tags := map[string][]string{
		"TALB": {"Café Tacvba"},
		"TIT2": {"北京"},
	}
	if err := client.Encode(context.Background(), "in", "out", tags, "", 0, ""); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []string{
		"--id3v2-only",
		"--tv", "TALB=Café Tacvba",
		"--id3v2-utf16",
		"--tv", "TIT2=北京",
		"in", "out",
	}
	if !slices.Equal(exec.args, want) {
		t.Fatalf("expected args %v, got %v", want, exec.args)
	}
}

func TestGenresParsesAndCachesVocabulary(t *testing.T) {
	exec := &recordingExecutor{output: "  0 Blues\n  8 Jazz\n 17 Rock\nnot-a-genre-line\n"}
	client, err := New("lame", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	genres, err := client.Genres(context.Background())
	if err != nil {
		t.Fatalf("genres: %v", err)
	}
	want := []string{"Blues", "Jazz", "Rock"}
	if !slices.Equal(genres, want) {
		t.Fatalf("expected %v, got %v", want, genres)
	}

	if _, err := client.Genres(context.Background()); err != nil {
		t.Fatalf("second genres call: %v", err)
	}
	if exec.calls != 1 {
		t.Fatalf("expected one invocation, got %d", exec.calls)
	}
}

func TestGenresPropagatesToolFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("exit 1")}
	client, err := New("lame", "", WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Genres(context.Background()); err == nil {
		t.Fatal("expected error from failing tool")
	}
}
