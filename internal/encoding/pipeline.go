package encoding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/services/flac"
	"platter/internal/services/lame"
)

// Instruction tells the pipeline how to process one track: where the ripped
// CDDA audio lives, where the lossless and lossy outputs go, and the
// finalized tags to stamp on both.
type Instruction struct {
	TrackNumber  int
	Include      bool
	SourcePath   string
	LosslessPath string
	LossyPath    string
	Tags         metadata.TrackTags
}

// Config carries the pipeline's collaborators and tuning knobs.
type Config struct {
	FLAC               flac.Encoder
	Lame               lame.Encoder
	LogDir             string
	WorkDir            string
	ProgressInterval   time.Duration
	MaxClippingRetries int
	Logger             *slog.Logger
}

// Pipeline rips tracks to FLAC one at a time and fans each finished rip out
// to a concurrent MP3 transcoder. Status flows back through the Handle's
// priority queue; the pipeline goroutine exits only after the caller has
// drained every message it produced.
type Pipeline struct {
	flac               flac.Encoder
	lame               lame.Encoder
	logDir             string
	workDir            string
	progressInterval   time.Duration
	maxClippingRetries int
	logger             *slog.Logger
}

// New validates the configuration and builds a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.FLAC == nil {
		return nil, fmt.Errorf("encoding: flac encoder is required")
	}
	if cfg.Lame == nil {
		return nil, fmt.Errorf("encoding: lame encoder is required")
	}
	if cfg.LogDir == "" {
		return nil, fmt.Errorf("encoding: log directory is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("encoding: work directory is required")
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 1250 * time.Millisecond
	}
	if cfg.MaxClippingRetries <= 0 {
		cfg.MaxClippingRetries = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		flac:               cfg.FLAC,
		lame:               cfg.Lame,
		logDir:             cfg.LogDir,
		workDir:            cfg.WorkDir,
		progressInterval:   cfg.ProgressInterval,
		maxClippingRetries: cfg.MaxClippingRetries,
		logger:             logger,
	}, nil
}

// Submit starts the pipeline over the given instructions and returns a
// Handle for consuming status messages. Excluded tracks are skipped without
// producing any message.
func (p *Pipeline) Submit(ctx context.Context, instructions []Instruction) *Handle {
	handle := &Handle{queue: newStatusQueue(), done: make(chan struct{})}
	go p.run(ctx, instructions, handle)
	return handle
}

func (p *Pipeline) run(ctx context.Context, instructions []Instruction, handle *Handle) {
	defer close(handle.done)
	queue := handle.queue

	var transcoders sync.WaitGroup
	for _, inst := range instructions {
		if !inst.Include {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if err := p.rip(ctx, inst, queue); err != nil {
			p.logger.Error("rip failed",
				logging.Int("track", inst.TrackNumber),
				logging.Error(err))
			queue.push(Message{
				Priority:   PriorityFailure,
				TrackIndex: inst.TrackNumber,
				State:      State{Kind: StateFailed},
				Err:        err,
			})
			continue
		}
		transcoders.Add(1)
		go func(inst Instruction) {
			defer transcoders.Done()
			p.transcode(ctx, inst, queue)
		}(inst)
	}

	transcoders.Wait()
	queue.push(Message{Priority: PriorityFinished, Finished: true})
	queue.awaitDrained(ctx)
	queue.close()
}

// rip encodes one track's CDDA source to FLAC, reporting progress from the
// encoder's log while the encode runs.
func (p *Pipeline) rip(ctx context.Context, inst Instruction, queue *statusQueue) error {
	logPath := p.logPath(inst.TrackNumber, "flac")

	ripDone := make(chan struct{})
	var poller sync.WaitGroup
	poller.Add(1)
	go func() {
		defer poller.Done()
		ticker := time.NewTicker(p.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ripDone:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				line, err := tailLine(logPath)
				if err != nil || line == "" {
					continue
				}
				queue.push(Message{
					Priority:     PriorityRipProgress,
					TrackIndex:   inst.TrackNumber,
					SourcePath:   line,
					LosslessPath: inst.LosslessPath,
					LogPath:      logPath,
					State:        State{Kind: StateEncodingFLAC},
				})
			}
		}
	}()

	err := p.flac.Encode(ctx, inst.SourcePath, inst.LosslessPath,
		inst.Tags.VorbisComments(), inst.Tags.CoverPath, logPath)
	close(ripDone)
	poller.Wait()
	return err
}

// transcode decodes one ripped FLAC to WAV in a scratch directory, encodes
// the WAV to MP3, and retries the MP3 encode at decreasing scale while lame
// reports clipping, up to the configured retry limit.
func (p *Pipeline) transcode(ctx context.Context, inst Instruction, queue *statusQueue) {
	fail := func(err error) {
		p.logger.Error("transcode failed",
			logging.Int("track", inst.TrackNumber),
			logging.Error(err))
		queue.push(Message{
			Priority:   PriorityFailure,
			TrackIndex: inst.TrackNumber,
			State:      State{Kind: StateFailed},
			Err:        err,
		})
	}

	scratch, err := os.MkdirTemp(p.workDir, fmt.Sprintf("track%02d-", inst.TrackNumber))
	if err != nil {
		fail(fmt.Errorf("create scratch dir: %w", err))
		return
	}
	defer os.RemoveAll(scratch)

	wavPath := filepath.Join(scratch, fmt.Sprintf("%02d.wav", inst.TrackNumber))
	decodeLog := p.logPath(inst.TrackNumber, "wav")
	queue.push(Message{
		Priority:     PriorityDecode,
		TrackIndex:   inst.TrackNumber,
		LosslessPath: inst.LosslessPath,
		LogPath:      decodeLog,
		State:        State{Kind: StateDecodingWAV},
	})
	if err := p.flac.Decode(ctx, inst.LosslessPath, wavPath, decodeLog); err != nil {
		fail(err)
		return
	}

	encodeLog := p.logPath(inst.TrackNumber, "mp3")
	queue.push(Message{
		Priority:   PriorityLossy,
		TrackIndex: inst.TrackNumber,
		LogPath:    encodeLog,
		State:      State{Kind: StateEncodingMP3},
	})

	tags := inst.Tags.ID3v2Tags()
	scale := 0.0
	for attempt := 0; ; attempt++ {
		if err := p.lame.Encode(ctx, wavPath, inst.LossyPath, tags,
			inst.Tags.CoverPath, scale, encodeLog); err != nil {
			fail(err)
			return
		}
		next, clipped, err := detectClipping(encodeLog, scale)
		if err != nil {
			fail(fmt.Errorf("inspect encoder log: %w", err))
			return
		}
		if !clipped {
			break
		}
		if attempt >= p.maxClippingRetries {
			fail(fmt.Errorf("clipping persists after %d re-encodes", attempt))
			return
		}
		scale = next
		p.logger.Info("clipping detected, re-encoding",
			logging.Int("track", inst.TrackNumber),
			logging.Float64("scale", scale))
		queue.push(Message{
			Priority:   PriorityLossy,
			TrackIndex: inst.TrackNumber,
			LogPath:    encodeLog,
			State:      Reencoding(scale),
		})
	}

	queue.push(Message{
		Priority:     PriorityComplete,
		TrackIndex:   inst.TrackNumber,
		LosslessPath: inst.LosslessPath,
		State:        State{Kind: StateComplete},
	})
}

func (p *Pipeline) logPath(track int, stage string) string {
	return filepath.Join(p.logDir, fmt.Sprintf("track%02d-%s.log", track, stage))
}
