package discid

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"platter/internal/disc"
	"platter/internal/services"
)

// Fingerprinter computes the catalog disc id for a TOC.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, toc disc.TOC) (string, error)
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

// Client wraps the fingerprint tool.
type Client struct {
	binary  string
	timeout time.Duration
	exec    services.Executor
}

var _ Fingerprinter = (*Client)(nil)

// New constructs a fingerprint client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("discid binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fingerprint runs the tool against the TOC and returns the printed id.
func (c *Client) Fingerprint(ctx context.Context, toc disc.TOC) (string, error) {
	if err := toc.Validate(); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "discid", "fingerprint", "invalid toc", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, 0, toc.TrackCount()+3)
	args = append(args, strconv.Itoa(toc.FirstTrack), strconv.Itoa(toc.LastTrack))
	for _, offset := range toc.TrackOffsets {
		args = append(args, strconv.Itoa(offset))
	}
	args = append(args, strconv.Itoa(toc.LeadoutOffset))

	var buf bytes.Buffer
	if err := c.exec.Run(runCtx, c.binary, args, &buf); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "discid", "fingerprint", "", err)
	}

	id, _, _ := strings.Cut(strings.TrimSpace(buf.String()), "\n")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", services.Wrap(services.ErrExternalTool, "discid", "fingerprint", "tool produced no id", nil)
	}
	return id, nil
}

// Local is a pure-Go fallback that digests the TOC. It keys snapshots in
// offline and test scenarios where the external tool is unavailable.
type Local struct{}

func (Local) Fingerprint(_ context.Context, toc disc.TOC) (string, error) {
	if err := toc.Validate(); err != nil {
		return "", err
	}
	return toc.Digest(), nil
}
