package encoding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"platter/internal/metadata"
)

type fakeFLAC struct {
	mu         sync.Mutex
	encodes    []string
	decodes    []string
	failEncode map[string]error
	failDecode map[string]error
}

func (f *fakeFLAC) Encode(_ context.Context, sourcePath, destPath string, _ map[string][]string, _, logPath string) error {
	f.mu.Lock()
	f.encodes = append(f.encodes, sourcePath)
	f.mu.Unlock()
	if logPath != "" {
		_ = os.WriteFile(logPath, []byte(sourcePath+": done\n"), 0o644)
	}
	if err := f.failEncode[sourcePath]; err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("flac"), 0o644)
}

func (f *fakeFLAC) Decode(_ context.Context, sourcePath, destPath, logPath string) error {
	f.mu.Lock()
	f.decodes = append(f.decodes, sourcePath)
	f.mu.Unlock()
	if logPath != "" {
		_ = os.WriteFile(logPath, []byte("decoded\n"), 0o644)
	}
	if err := f.failDecode[sourcePath]; err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("wav"), 0o644)
}

// fakeLame reports clipping for the first clipFirst invocations per output,
// suggesting suggestScale when it is non-zero.
type fakeLame struct {
	mu           sync.Mutex
	scales       map[string][]float64
	clipFirst    int
	suggestScale float64
}

func (f *fakeLame) Encode(_ context.Context, _, destPath string, _ map[string][]string, _ string, scale float64, logPath string) error {
	f.mu.Lock()
	if f.scales == nil {
		f.scales = make(map[string][]float64)
	}
	f.scales[destPath] = append(f.scales[destPath], scale)
	attempt := len(f.scales[destPath])
	f.mu.Unlock()

	content := "done\n"
	if attempt <= f.clipFirst {
		content = ClippingWarning + "\n"
		if f.suggestScale > 0 {
			content += fmt.Sprintf("encode again using --scale %.2f\n", f.suggestScale)
		}
	}
	if logPath != "" {
		if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return os.WriteFile(destPath, []byte("mp3"), 0o644)
}

func testPipeline(t *testing.T, flacEnc *fakeFLAC, lameEnc *fakeLame, maxRetries int) *Pipeline {
	t.Helper()
	p, err := New(Config{
		FLAC:               flacEnc,
		Lame:               lameEnc,
		LogDir:             t.TempDir(),
		WorkDir:            t.TempDir(),
		ProgressInterval:   time.Hour,
		MaxClippingRetries: maxRetries,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func testInstructions(t *testing.T, count int) []Instruction {
	t.Helper()
	out := t.TempDir()
	instructions := make([]Instruction, 0, count)
	for i := 1; i <= count; i++ {
		instructions = append(instructions, Instruction{
			TrackNumber:  i,
			Include:      true,
			SourcePath:   fmt.Sprintf("/capture/%02d.wav", i),
			LosslessPath: fmt.Sprintf("%s/%02d.flac", out, i),
			LossyPath:    fmt.Sprintf("%s/%02d.mp3", out, i),
			Tags:         metadata.TrackTags{TrackNumber: i, Custom: metadata.NewCustomTags()},
		})
	}
	return instructions
}

func drain(t *testing.T, handle *Handle) []Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var messages []Message
	for {
		msg, ok := handle.Next(ctx)
		if !ok {
			t.Fatal("stream ended without a terminal message")
		}
		messages = append(messages, msg)
		if msg.Finished {
			break
		}
	}
	select {
	case <-handle.Done():
	case <-ctx.Done():
		t.Fatal("pipeline did not exit after drain")
	}
	return messages
}

func TestPipelineRipsSequentiallyAndIsolatesFailures(t *testing.T) {
	flacEnc := &fakeFLAC{failEncode: map[string]error{
		"/capture/02.wav": errors.New("read error on sector 1024"),
	}}
	lameEnc := &fakeLame{}
	pipeline := testPipeline(t, flacEnc, lameEnc, 0)
	instructions := testInstructions(t, 3)

	messages := drain(t, pipeline.Submit(context.Background(), instructions))

	wantEncodes := []string{"/capture/01.wav", "/capture/02.wav", "/capture/03.wav"}
	for i, want := range wantEncodes {
		if flacEnc.encodes[i] != want {
			t.Fatalf("rip order broken: %v", flacEnc.encodes)
		}
	}

	var failures, completes []int
	for _, msg := range messages {
		switch {
		case msg.Err != nil:
			failures = append(failures, msg.TrackIndex)
		case msg.State.Kind == StateComplete:
			completes = append(completes, msg.TrackIndex)
		}
	}
	if len(failures) != 1 || failures[0] != 2 {
		t.Fatalf("expected only track 2 to fail, got %v", failures)
	}
	if len(completes) != 2 {
		t.Fatalf("expected tracks 1 and 3 to complete, got %v", completes)
	}
	if !messages[len(messages)-1].Finished {
		t.Fatal("terminal message not delivered last")
	}
	if len(flacEnc.decodes) != 2 {
		t.Fatalf("failed rip reached the transcoder: %v", flacEnc.decodes)
	}
}

func TestPipelineRetriesOnceWhenClippingSuggestsScale(t *testing.T) {
	flacEnc := &fakeFLAC{}
	lameEnc := &fakeLame{clipFirst: 1, suggestScale: 0.87}
	pipeline := testPipeline(t, flacEnc, lameEnc, 10)
	instructions := testInstructions(t, 1)

	messages := drain(t, pipeline.Submit(context.Background(), instructions))

	scales := lameEnc.scales[instructions[0].LossyPath]
	if len(scales) != 2 || scales[0] != 0 || scales[1] != 0.87 {
		t.Fatalf("expected encode at 0 then 0.87, got %v", scales)
	}

	var sawReencode, sawComplete bool
	for _, msg := range messages {
		if msg.State.Kind == StateReencodingMP3 {
			sawReencode = true
			if msg.State.Scale != 0.87 {
				t.Fatalf("re-encode announced wrong scale %v", msg.State.Scale)
			}
		}
		if msg.State.Kind == StateComplete {
			sawComplete = true
		}
	}
	if !sawReencode || !sawComplete {
		t.Fatalf("missing re-encode or completion message: reencode=%t complete=%t", sawReencode, sawComplete)
	}
}

func TestPipelineFailsAfterClippingRetriesExhausted(t *testing.T) {
	flacEnc := &fakeFLAC{}
	lameEnc := &fakeLame{clipFirst: 100}
	pipeline := testPipeline(t, flacEnc, lameEnc, 2)
	instructions := testInstructions(t, 1)

	messages := drain(t, pipeline.Submit(context.Background(), instructions))

	if got := len(lameEnc.scales[instructions[0].LossyPath]); got != 3 {
		t.Fatalf("expected 3 encode attempts (initial + 2 retries), got %d", got)
	}
	var failed bool
	for _, msg := range messages {
		if msg.TrackIndex == 1 && msg.Err != nil {
			failed = true
		}
		if msg.State.Kind == StateComplete {
			t.Fatal("track completed despite persistent clipping")
		}
	}
	if !failed {
		t.Fatal("persistent clipping did not fail the track")
	}
}

func TestPipelineSkipsExcludedTracks(t *testing.T) {
	flacEnc := &fakeFLAC{}
	lameEnc := &fakeLame{}
	pipeline := testPipeline(t, flacEnc, lameEnc, 0)

	instructions := testInstructions(t, 2)
	instructions[0].Include = false

	messages := drain(t, pipeline.Submit(context.Background(), instructions))

	for _, msg := range messages {
		if msg.TrackIndex == 1 && !msg.Finished {
			t.Fatalf("excluded track produced a message: %+v", msg)
		}
	}
	if len(flacEnc.encodes) != 1 {
		t.Fatalf("expected a single rip, got %v", flacEnc.encodes)
	}
}
