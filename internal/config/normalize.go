package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ and environment variables in a path.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// Normalize expands paths and backfills zero values with defaults.
func (c *Config) Normalize() {
	defaults := Default()

	c.Paths.FLACLibraryDir = expandOr(c.Paths.FLACLibraryDir, defaults.Paths.FLACLibraryDir)
	c.Paths.MP3LibraryDir = expandOr(c.Paths.MP3LibraryDir, defaults.Paths.MP3LibraryDir)
	c.Paths.LogDir = expandOr(c.Paths.LogDir, defaults.Paths.LogDir)
	c.Paths.WorkDir = expandOr(c.Paths.WorkDir, defaults.Paths.WorkDir)
	c.Paths.JournalPath = expandOr(c.Paths.JournalPath, defaults.Paths.JournalPath)

	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = defaults.HTTP.TimeoutSeconds
	}
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		c.HTTP.UserAgent = defaults.HTTP.UserAgent
	}
	if strings.TrimSpace(c.Gracenote.BaseURL) == "" {
		c.Gracenote.BaseURL = defaults.Gracenote.BaseURL
	}
	if strings.TrimSpace(c.MusicBrainz.BaseURL) == "" {
		c.MusicBrainz.BaseURL = defaults.MusicBrainz.BaseURL
	}
	if strings.TrimSpace(c.FLAC.Binary) == "" {
		c.FLAC.Binary = defaults.FLAC.Binary
	}
	if strings.TrimSpace(c.MP3.Binary) == "" {
		c.MP3.Binary = defaults.MP3.Binary
	}
	if strings.TrimSpace(c.DiscID.Binary) == "" {
		c.DiscID.Binary = defaults.DiscID.Binary
	}
	if c.Pipeline.ProgressIntervalMS <= 0 {
		c.Pipeline.ProgressIntervalMS = defaults.Pipeline.ProgressIntervalMS
	}
	if c.Pipeline.MaxClippingRetries <= 0 {
		c.Pipeline.MaxClippingRetries = defaults.Pipeline.MaxClippingRetries
	}
	if c.Pipeline.CollectTimeoutSeconds <= 0 {
		c.Pipeline.CollectTimeoutSeconds = defaults.Pipeline.CollectTimeoutSeconds
	}
	if c.Pipeline.FingerprintTimeoutSecs <= 0 {
		c.Pipeline.FingerprintTimeoutSecs = defaults.Pipeline.FingerprintTimeoutSecs
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	normalizeNaming(&c.FLAC.Naming, defaults.FLAC.Naming)
	normalizeNaming(&c.MP3.Naming, defaults.MP3.Naming)
}

func normalizeNaming(n *Naming, defaults Naming) {
	fill := func(field *string, fallback string) {
		if strings.TrimSpace(*field) == "" {
			*field = fallback
		}
	}
	fill(&n.AlbumFolder, defaults.AlbumFolder)
	fill(&n.NDiscAlbumFolder, defaults.NDiscAlbumFolder)
	fill(&n.CompilationAlbumFolder, defaults.CompilationAlbumFolder)
	fill(&n.NDiscCompilationAlbumFolder, defaults.NDiscCompilationAlbumFolder)
	fill(&n.TrackFilename, defaults.TrackFilename)
	fill(&n.NDiscTrackFilename, defaults.NDiscTrackFilename)
	fill(&n.CompilationTrackFilename, defaults.CompilationTrackFilename)
	fill(&n.NDiscCompilationTrackFilename, defaults.NDiscCompilationTrackFilename)
	fill(&n.TrackFileExt, defaults.TrackFileExt)
	if n.TrieLevel < 0 {
		n.TrieLevel = 0
	}
}

func expandOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return ExpandPath(value)
}
