package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"platter/internal/config"
	"platter/internal/logging"
	"platter/internal/metadata"
	"platter/internal/services/discid"
	"platter/internal/services/flac"
	"platter/internal/services/lame"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// fingerprinter resolves the disc id source: the external tool when one is
// configured, the local TOC digest otherwise.
func (c *commandContext) fingerprinter(cfg *config.Config) (metadata.Fingerprinter, error) {
	if strings.TrimSpace(cfg.DiscID.Binary) == "" {
		return discid.Local{}, nil
	}
	return discid.New(cfg.DiscID.Binary, cfg.Pipeline.FingerprintTimeoutSecs)
}

// collectors builds the catalog collector chain in precedence order.
func (c *commandContext) collectors(cfg *config.Config, fp metadata.Fingerprinter) ([]metadata.Collector, error) {
	var catalogs []metadata.Collector
	if strings.TrimSpace(cfg.Gracenote.ClientID) != "" {
		gn, err := metadata.NewGracenote(cfg.Gracenote.ClientID, cfg.Gracenote.BaseURL,
			cfg.HTTP.UserAgent, cfg.HTTP.TimeoutSeconds)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, gn)
	}
	mb, err := metadata.NewMusicBrainz(cfg.MusicBrainz.BaseURL, cfg.HTTP.UserAgent,
		cfg.HTTP.TimeoutSeconds, fp)
	if err != nil {
		return nil, err
	}
	catalogs = append(catalogs, mb)
	return catalogs, nil
}

func (c *commandContext) newAggregator(cfg *config.Config) (*metadata.Aggregator, *metadata.Persistence, error) {
	fp, err := c.fingerprinter(cfg)
	if err != nil {
		return nil, nil, err
	}
	persistence, err := metadata.NewPersistence(filepath.Join(cfg.Paths.WorkDir, "snapshots"), fp)
	if err != nil {
		return nil, nil, err
	}
	catalogs, err := c.collectors(cfg, fp)
	if err != nil {
		return nil, nil, err
	}
	genres, err := lame.New(cfg.MP3.Binary, cfg.MP3.EncodeOptions)
	if err != nil {
		return nil, nil, err
	}
	return metadata.NewAggregator(persistence, catalogs, genres, c.ensureLogger()), persistence, nil
}

func (c *commandContext) newFLACClient(cfg *config.Config) (*flac.Client, error) {
	return flac.New(cfg.FLAC.Binary, cfg.FLAC.EncodeOptions, cfg.FLAC.DecodeOptions)
}

func (c *commandContext) newLameClient(cfg *config.Config) (*lame.Client, error) {
	return lame.New(cfg.MP3.Binary, cfg.MP3.EncodeOptions)
}
