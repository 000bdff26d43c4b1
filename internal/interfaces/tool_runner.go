package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrToolNotFound is returned when an external binary cannot be resolved on PATH
var ErrToolNotFound = errors.New("tool not found")

// ToolOutput holds what an external command wrote and how it exited
type ToolOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Elapsed  time.Duration
}

// ToolRunner executes external binaries with an argument vector and a hard timeout.
type ToolRunner interface {
	// Run executes name with args. A non-zero exit, a timeout or a missing
	// binary is reported as an error; Stdout/Stderr are still returned when
	// the process started.
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (*ToolOutput, error)

	// Available reports whether name resolves to an executable
	Available(name string) bool
}
