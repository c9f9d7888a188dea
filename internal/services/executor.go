package services

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Executor abstracts command execution for testability. The process's stdout
// and stderr are both written to output, which may be nil to discard.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, output io.Writer) error
}

// CommandExecutor runs real subprocesses via os/exec.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, binary string, args []string, output io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	if output == nil {
		output = io.Discard
	}
	cmd.Stdout = output
	cmd.Stderr = output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}
