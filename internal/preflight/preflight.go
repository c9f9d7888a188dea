package preflight

import (
	"context"

	"platter/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minWorkSpace is the free space floor for the scratch directory. A full CD
// decoded to WAV needs under a gigabyte; two gives rip and transcode room
// to overlap.
const minWorkSpace = 2 << 30

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckBinary("flac", cfg.FLAC.Binary))
	results = append(results, CheckBinary("lame", cfg.MP3.Binary))
	if cfg.DiscID.Binary != "" {
		results = append(results, CheckBinary("disc id tool", cfg.DiscID.Binary))
	}

	results = append(results, CheckDirectoryAccess("FLAC library", cfg.Paths.FLACLibraryDir))
	results = append(results, CheckDirectoryAccess("MP3 library", cfg.Paths.MP3LibraryDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, minWorkSpace))

	if cfg.MusicBrainz.BaseURL != "" {
		results = append(results, CheckService(ctx, "MusicBrainz", cfg.MusicBrainz.BaseURL, cfg.HTTP.UserAgent))
	}
	if cfg.Gracenote.ClientID != "" {
		results = append(results, CheckService(ctx, "Gracenote", cfg.Gracenote.BaseURL, cfg.HTTP.UserAgent))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
