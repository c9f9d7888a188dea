package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	FLACLibraryDir string `toml:"flac_library_dir"`
	MP3LibraryDir  string `toml:"mp3_library_dir"`
	LogDir         string `toml:"log_dir"`
	WorkDir        string `toml:"work_dir"`
	JournalPath    string `toml:"journal_path"`
}

// HTTP contains settings shared by the catalog clients.
type HTTP struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Gracenote contains configuration for the session-authenticated catalog.
type Gracenote struct {
	ClientID string `toml:"client_id"`
	BaseURL  string `toml:"base_url"`
}

// MusicBrainz contains configuration for the fingerprint-keyed catalog.
type MusicBrainz struct {
	BaseURL string `toml:"base_url"`
	Contact string `toml:"contact"`
}

// Naming contains the output naming templates for one target format.
//
// Folder and filename templates substitute {field} placeholders from the
// finalized per-track metadata. The ndisc_* variants are selected when the
// album spans multiple discs, the compilation_* variants when the album is a
// compilation.
type Naming struct {
	AlbumFolder                   string `toml:"album_folder"`
	NDiscAlbumFolder              string `toml:"ndisc_album_folder"`
	CompilationAlbumFolder        string `toml:"compilation_album_folder"`
	NDiscCompilationAlbumFolder   string `toml:"ndisc_compilation_album_folder"`
	TrackFilename                 string `toml:"track_filename"`
	NDiscTrackFilename            string `toml:"ndisc_track_filename"`
	CompilationTrackFilename      string `toml:"compilation_track_filename"`
	NDiscCompilationTrackFilename string `toml:"ndisc_compilation_track_filename"`
	TrackFileExt                  string `toml:"track_fileext"`
	UseSafeNames                  bool   `toml:"use_safe_names"`
	TrieKey                       string `toml:"library_trie_key"`
	CompilationTrieKey            string `toml:"library_compilation_trie_key"`
	TrieLevel                     int    `toml:"library_trie_level"`
	TrieIgnoreLeadingArticles     string `toml:"trie_ignore_leading_articles"`
}

// FLAC contains lossless encoder settings.
type FLAC struct {
	Binary        string `toml:"binary"`
	EncodeOptions string `toml:"encode_options"`
	DecodeOptions string `toml:"decode_options"`
	Naming        Naming `toml:"naming"`
}

// MP3 contains lossy encoder settings.
type MP3 struct {
	Binary        string `toml:"binary"`
	EncodeOptions string `toml:"encode_options"`
	Naming        Naming `toml:"naming"`
}

// DiscID contains the disc fingerprint tool settings.
type DiscID struct {
	Binary string `toml:"binary"`
}

// Pipeline contains transcoding pipeline tuning.
type Pipeline struct {
	ProgressIntervalMS     int `toml:"progress_interval_ms"`
	MaxClippingRetries     int `toml:"max_clipping_retries"`
	CollectTimeoutSeconds  int `toml:"collect_timeout_seconds"`
	FingerprintTimeoutSecs int `toml:"fingerprint_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths"`
	HTTP        HTTP        `toml:"http"`
	Gracenote   Gracenote   `toml:"gracenote"`
	MusicBrainz MusicBrainz `toml:"musicbrainz"`
	FLAC        FLAC        `toml:"flac"`
	MP3         MP3         `toml:"mp3"`
	DiscID      DiscID      `toml:"discid"`
	Pipeline    Pipeline    `toml:"pipeline"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the preferred config file location.
func DefaultConfigPath() string {
	if base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); base != "" {
		return filepath.Join(base, "platter", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "platter", "config.toml")
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist. The returned string is the path actually consulted.
func Load(path string) (*Config, string, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	resolved = ExpandPath(resolved)

	cfg := Default()
	raw, err := os.ReadFile(resolved)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return nil, resolved, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults apply
	default:
		return nil, resolved, fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, resolved, err
	}
	return &cfg, resolved, nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories platter needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.FLACLibraryDir,
		c.Paths.MP3LibraryDir,
		c.Paths.LogDir,
		c.Paths.WorkDir,
		filepath.Dir(c.Paths.JournalPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
