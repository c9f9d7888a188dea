package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNaming("flac", c.FLAC.Naming); err != nil {
		return err
	}
	if err := c.validateNaming("mp3", c.MP3.Naming); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.FLACLibraryDir) == "" {
		return errors.New("paths.flac_library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.MP3LibraryDir) == "" {
		return errors.New("paths.mp3_library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		return errors.New("paths.journal_path must be set")
	}
	return nil
}

func (c *Config) validateNaming(section string, n Naming) error {
	if strings.TrimSpace(n.TrackFileExt) == "" {
		return fmt.Errorf("%s.naming.track_fileext must be set", section)
	}
	if !strings.HasPrefix(n.TrackFileExt, ".") {
		return fmt.Errorf("%s.naming.track_fileext must start with a dot", section)
	}
	switch n.TrieKey {
	case "", "album_artist", "album_title":
	default:
		return fmt.Errorf("%s.naming.library_trie_key must be album_artist or album_title", section)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
