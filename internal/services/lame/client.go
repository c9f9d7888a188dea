package lame

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"platter/internal/services"
)

// Encoder defines the behaviour the pipeline requires from the lossy tool.
type Encoder interface {
	Encode(ctx context.Context, sourcePath, destPath string, tags map[string][]string, coverPath string, scale float64, logPath string) error
}

// GenreSource yields the encoder's controlled genre vocabulary.
type GenreSource interface {
	Genres(ctx context.Context) ([]string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps lame CLI interactions. The genre vocabulary is fetched once
// and cached for the process lifetime.
type Client struct {
	binary     string
	encodeOpts []string
	exec       services.Executor

	genresOnce sync.Once
	genres     []string
	genresErr  error
}

var (
	_ Encoder     = (*Client)(nil)
	_ GenreSource = (*Client)(nil)
)

// New constructs a lame client.
func New(binary, encodeOptions string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("lame binary required")
	}
	client := &Client{
		binary:     binary,
		encodeOpts: strings.Fields(encodeOptions),
		exec:       services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Encode converts a WAV file to a tagged MP3 file. A scale > 0 multiplies the
// PCM data, used when correcting clipping. Tag names map to ordered ID3v2
// frame values; multiple values are joined with ", " because common players
// mishandle the standard ID3v2 "/" separator.
func (c *Client) Encode(ctx context.Context, sourcePath, destPath string, tags map[string][]string, coverPath string, scale float64, logPath string) error {
	args := append([]string{}, c.encodeOpts...)
	if scale > 0 {
		args = append(args, "--scale", fmt.Sprintf("%.2f", scale))
	}
	args = append(args, "--id3v2-only")
	if coverPath != "" {
		args = append(args, "--ti", coverPath)
	}

	var utf16Tags []string
	for _, name := range sortedTagNames(tags) {
		tag := fmt.Sprintf("%s=%s", name, strings.Join(tags[name], ", "))
		if isLatin1(tag) {
			args = append(args, "--tv", tag)
		} else {
			utf16Tags = append(utf16Tags, "--tv", tag)
		}
	}
	if len(utf16Tags) > 0 {
		args = append(args, "--id3v2-utf16")
		args = append(args, utf16Tags...)
	}

	args = append(args, sourcePath, destPath)

	if err := c.run(ctx, args, logPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "lame", "encode", sourcePath, err)
	}
	return nil
}

// Genres returns the encoder's genre vocabulary, cached after the first call.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	c.genresOnce.Do(func() {
		var buf bytes.Buffer
		// lame writes the genre list to stderr; the executor captures both.
		if err := c.exec.Run(ctx, c.binary, []string{"--genre-list"}, &buf); err != nil {
			c.genresErr = services.Wrap(services.ErrExternalTool, "lame", "genre-list", "", err)
			return
		}
		c.genres = parseGenreList(buf.String())
	})
	if c.genresErr != nil {
		return nil, c.genresErr
	}
	cp := make([]string, len(c.genres))
	copy(cp, c.genres)
	return cp, nil
}

func parseGenreList(output string) []string {
	var genres []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
		if len(fields) != 2 {
			continue
		}
		if label := strings.TrimSpace(fields[1]); label != "" {
			genres = append(genres, label)
		}
	}
	return genres
}

func (c *Client) run(ctx context.Context, args []string, logPath string) error {
	if logPath == "" {
		return c.exec.Run(ctx, c.binary, args, nil)
	}
	log, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", logPath, err)
	}
	defer log.Close()
	return c.exec.Run(ctx, c.binary, args, log)
}

func isLatin1(value string) bool {
	for _, r := range value {
		if r > 0xFF {
			return false
		}
	}
	return true
}

func sortedTagNames(tags map[string][]string) []string {
	names := make([]string, 0, len(tags))
	for name, values := range tags {
		if len(values) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
