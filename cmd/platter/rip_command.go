package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"platter/internal/config"
	"platter/internal/disc"
	"platter/internal/encoding"
	"platter/internal/journal"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/naming"
)

func newRipCommand(ctx *commandContext) *cobra.Command {
	var (
		tocFlag     string
		tocFileFlag string
		sourceFlag  string
		excludeFlag []int
	)

	cmd := &cobra.Command{
		Use:   "rip",
		Short: "Rip a captured disc into the FLAC and MP3 libraries",
		Long: `Rip encodes a directory of captured CDDA track files to FLAC in the
lossless library, then transcodes each finished track to MP3 in the lossy
library. Album metadata is aggregated from the catalog services and any
prior rip of the same disc.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			toc, err := resolveTOC(tocFlag, tocFileFlag)
			if err != nil {
				return err
			}
			sources, err := sourceFiles(sourceFlag)
			if err != nil {
				return err
			}
			if len(sources) != toc.TrackCount() {
				return fmt.Errorf("%d source files for %d tracks", len(sources), toc.TrackCount())
			}
			return runRip(cmd.Context(), ctx, cfg, cmd.OutOrStdout(), toc, sources, excludeFlag)
		},
	}

	cmd.Flags().StringVar(&tocFlag, "toc", "", "Table of contents (\"first last offsets... leadout\")")
	cmd.Flags().StringVar(&tocFileFlag, "toc-file", "", "File containing the table of contents")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Directory of captured CDDA track files")
	cmd.Flags().IntSliceVar(&excludeFlag, "exclude", nil, "Track numbers to exclude from the rip")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runRip(parent context.Context, cmdCtx *commandContext, cfg *config.Config, out io.Writer, toc disc.TOC, sources []string, excluded []int) error {
	runCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cmdCtx.ensureLogger()

	aggregator, persistence, err := cmdCtx.newAggregator(cfg)
	if err != nil {
		return err
	}

	collectCtx, cancel := context.WithTimeout(runCtx, time.Duration(cfg.Pipeline.CollectTimeoutSeconds)*time.Second)
	result, err := aggregator.Aggregate(collectCtx, toc)
	cancel()
	if err != nil {
		return fmt.Errorf("aggregate metadata: %w", err)
	}
	for _, collectErr := range result.Errors {
		logger.Warn("metadata source failed", logging.Error(collectErr))
	}
	record := result.Record
	for _, number := range excluded {
		if number >= 1 && number < len(record.Tracks) {
			record.Tracks[number].Include = false
		}
	}

	if err := persistence.Store(runCtx, toc, record); err != nil {
		return fmt.Errorf("persist metadata snapshot: %w", err)
	}

	coverPath, err := writeCover(cfg.Paths.WorkDir, record)
	if err != nil {
		return err
	}
	if coverPath != "" {
		defer os.Remove(coverPath)
	}

	store, err := journal.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := store.CreateSession(runCtx, persistence.DiscID(),
		firstOr(record.Album.Title, ""), firstOr(record.Album.Artist, ""))
	if err != nil {
		return err
	}
	if err := store.UpdateSessionStatus(runCtx, session.ID, journal.StatusRipping, ""); err != nil {
		return err
	}

	instructions, statuses, err := buildInstructions(cfg, record, sources, coverPath)
	if err != nil {
		recordFailure(runCtx, store, session.ID, err)
		return err
	}

	flacClient, err := cmdCtx.newFLACClient(cfg)
	if err != nil {
		return err
	}
	lameClient, err := cmdCtx.newLameClient(cfg)
	if err != nil {
		return err
	}
	pipeline, err := encoding.New(encoding.Config{
		FLAC:               flacClient,
		Lame:               lameClient,
		LogDir:             cfg.Paths.LogDir,
		WorkDir:            cfg.Paths.WorkDir,
		ProgressInterval:   time.Duration(cfg.Pipeline.ProgressIntervalMS) * time.Millisecond,
		MaxClippingRetries: cfg.Pipeline.MaxClippingRetries,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	failed := consumeStatus(runCtx, out, pipeline.Submit(runCtx, instructions), statuses, store, session.ID, instructions)

	if runCtx.Err() != nil {
		recordFailure(parent, store, session.ID, runCtx.Err())
		return runCtx.Err()
	}
	if len(failed) > 0 {
		err := fmt.Errorf("%d of %d tracks failed", len(failed), countIncluded(instructions))
		recordFailure(runCtx, store, session.ID, err)
		return err
	}
	if err := store.UpdateSessionStatus(runCtx, session.ID, journal.StatusCompleted, ""); err != nil {
		return err
	}
	fmt.Fprintf(out, "Rip complete: %d tracks in session %s\n", countIncluded(instructions), session.ID)
	return nil
}

// buildInstructions finalizes each included track's tags, resolves its
// library paths, and pairs it with its capture file.
func buildInstructions(cfg *config.Config, record *metadata.Record, sources []string, coverPath string) ([]encoding.Instruction, map[int]*encoding.TrackStatus, error) {
	flacScheme := naming.NewScheme(cfg.FLAC.Naming)
	mp3Scheme := naming.NewScheme(cfg.MP3.Naming)

	instructions := make([]encoding.Instruction, 0, record.TrackCount())
	statuses := make(map[int]*encoding.TrackStatus, record.TrackCount())
	for number := 1; number <= record.TrackCount(); number++ {
		track := record.Tracks[number]
		tags, err := record.Finalize(number)
		if err != nil {
			return nil, nil, err
		}
		tags.CoverPath = coverPath

		label := fmt.Sprintf("Track %02d %s", number, tags.TrackTitle)
		statuses[number] = encoding.NewTrackStatus(label, track.Include)
		if !track.Include {
			instructions = append(instructions, encoding.Instruction{TrackNumber: number})
			continue
		}

		losslessPath := flacScheme.TrackPath(cfg.Paths.FLACLibraryDir, tags)
		lossyPath := mp3Scheme.TrackPath(cfg.Paths.MP3LibraryDir, tags)
		for _, dir := range []string{filepath.Dir(losslessPath), filepath.Dir(lossyPath)} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create library directory: %w", err)
			}
		}

		instructions = append(instructions, encoding.Instruction{
			TrackNumber:  number,
			Include:      true,
			SourcePath:   sources[number-1],
			LosslessPath: losslessPath,
			LossyPath:    lossyPath,
			Tags:         tags,
		})
	}
	return instructions, statuses, nil
}

// consumeStatus drains pipeline messages until the terminal message,
// updating the displayed status line and the journal as tracks move through
// the encode states. It returns the numbers of failed tracks.
func consumeStatus(ctx context.Context, out io.Writer, handle *encoding.Handle, statuses map[int]*encoding.TrackStatus, store *journal.Store, sessionID string, instructions []encoding.Instruction) []int {
	colorize := shouldColorize(out)
	byNumber := make(map[int]encoding.Instruction, len(instructions))
	for _, inst := range instructions {
		byNumber[inst.TrackNumber] = inst
	}

	var failed []int
	for {
		msg, ok := handle.Next(ctx)
		if !ok {
			return failed
		}
		if msg.Finished {
			return failed
		}
		status := statuses[msg.TrackIndex]
		if status == nil {
			continue
		}

		var changed bool
		if msg.Err != nil {
			changed = status.Fail(msg.Err)
			if changed {
				failed = append(failed, msg.TrackIndex)
			}
		} else {
			changed = status.Advance(msg.State)
		}
		if !changed {
			continue
		}

		detail := ""
		if msg.Priority == encoding.PriorityRipProgress {
			detail = msg.SourcePath
		}
		line := status.Describe(detail)
		if colorize {
			switch status.State().Kind {
			case encoding.StateFailed:
				line = ansiRed + line + ansiReset
			case encoding.StateComplete:
				line = ansiGreen + line + ansiReset
			}
		}
		fmt.Fprintln(out, line)

		inst := byNumber[msg.TrackIndex]
		entry := journal.TrackEntry{
			SessionID:    sessionID,
			TrackNumber:  msg.TrackIndex,
			Title:        inst.Tags.TrackTitle,
			State:        status.State().Kind.String(),
			Scale:        status.State().Scale,
			LosslessPath: inst.LosslessPath,
			LossyPath:    inst.LossyPath,
		}
		if cause := status.Cause(); cause != nil {
			entry.ErrorMessage = cause.Error()
		}
		if err := store.RecordTrack(ctx, entry); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "journal update failed: %v\n", err)
		}
	}
}

func recordFailure(ctx context.Context, store *journal.Store, sessionID string, cause error) {
	if err := store.UpdateSessionStatus(ctx, sessionID, journal.StatusFailed, cause.Error()); err != nil {
		fmt.Fprintf(os.Stderr, "journal update failed: %v\n", err)
	}
}

func countIncluded(instructions []encoding.Instruction) int {
	count := 0
	for _, inst := range instructions {
		if inst.Include {
			count++
		}
	}
	return count
}
