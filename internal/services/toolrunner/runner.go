package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/interfaces"
)

// DefaultTimeout bounds a single external invocation when the caller passes 0
const DefaultTimeout = 10 * time.Second

// Runner executes external binaries through os/exec with an argument vector.
// Paths are never interpolated into a shell string.
type Runner struct {
	logger arbor.ILogger
}

// NewRunner creates a new tool runner
func NewRunner(logger arbor.ILogger) *Runner {
	return &Runner{logger: logger}
}

// Available reports whether name resolves on PATH (or is an existing executable path)
func (r *Runner) Available(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// Run executes name with args and kills the process once timeout elapses
func (r *Runner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (*interfaces.ToolOutput, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty tool name", interfaces.ErrToolNotFound)
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrToolNotFound, name)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	output := &interfaces.ToolOutput{
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
		Elapsed: time.Since(start),
	}
	if cmd.ProcessState != nil {
		output.ExitCode = cmd.ProcessState.ExitCode()
	}

	r.logger.Trace().
		Str("tool", name).
		Strs("args", args).
		Int("exit_code", output.ExitCode).
		Dur("elapsed", output.Elapsed).
		Msg("External tool finished")

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return output, fmt.Errorf("%s timed out after %s", name, timeout)
		}
		return output, fmt.Errorf("%s failed: %w", name, runErr)
	}

	return output, nil
}
