package flac

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"platter/internal/services"
)

// Encoder defines the behaviour the pipeline requires from the lossless tool.
type Encoder interface {
	Encode(ctx context.Context, sourcePath, destPath string, tags map[string][]string, coverPath, logPath string) error
	Decode(ctx context.Context, sourcePath, destPath, logPath string) error
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

// Client wraps flac CLI interactions.
type Client struct {
	binary     string
	encodeOpts []string
	decodeOpts []string
	exec       services.Executor
}

var _ Encoder = (*Client)(nil)

// New constructs a flac client. encodeOptions and decodeOptions are
// whitespace-separated extra arguments, as configured.
func New(binary, encodeOptions, decodeOptions string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("flac binary required")
	}
	client := &Client{
		binary:     binary,
		encodeOpts: strings.Fields(encodeOptions),
		decodeOpts: strings.Fields(decodeOptions),
		exec:       services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Encode rips a CDDA source file to a tagged FLAC file. Tag names map to
// ordered Vorbis comment values; coverPath may be empty. The process log is
// captured to logPath.
func (c *Client) Encode(ctx context.Context, sourcePath, destPath string, tags map[string][]string, coverPath, logPath string) error {
	args := append([]string{}, c.encodeOpts...)
	if coverPath != "" {
		args = append(args, "--picture="+coverPath)
	}
	for _, name := range sortedTagNames(tags) {
		for _, value := range tags[name] {
			args = append(args, fmt.Sprintf("--tag=%s=%s", name, value))
		}
	}
	args = append(args, "--output-name="+destPath, sourcePath)

	if err := c.run(ctx, args, logPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "flac", "encode", sourcePath, err)
	}
	return nil
}

// Decode converts a FLAC file to WAV.
func (c *Client) Decode(ctx context.Context, sourcePath, destPath, logPath string) error {
	args := append([]string{"--decode"}, c.decodeOpts...)
	args = append(args, "--output-name="+destPath, sourcePath)

	if err := c.run(ctx, args, logPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "flac", "decode", sourcePath, err)
	}
	return nil
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
