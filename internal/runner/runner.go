// Package runner executes a program and feeds its console output through
// the lifecycle controller, acting as the host-environment side of the
// pipeline: process-starting, console-text and process-terminated
// notifications come from a real child process.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/mlinna/devlog/internal/lifecycle"
)

// DefaultTimeout bounds a supervised run (10 minutes).
const DefaultTimeout = 10 * time.Minute

// Runner supervises one child process at a time.
type Runner struct {
	ctrl    *lifecycle.Controller
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides the run timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a runner feeding the given controller.
func New(ctrl *lifecycle.Controller, opts ...Option) *Runner {
	r := &Runner{ctrl: ctrl, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// consoleWriter forwards process output to the controller as it arrives.
// The controller serializes access, so stdout and stderr may share one
// writer.
type consoleWriter struct {
	ctrl *lifecycle.Controller
}

func (w consoleWriter) Write(p []byte) (int, error) {
	w.ctrl.ConsoleText(string(p))
	return len(p), nil
}

// Run executes the program, streaming its output into the current run
// session, and returns the exit code. The run session is always closed,
// including on timeout or start failure.
func (r *Runner) Run(ctx context.Context, executor, name string, args ...string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.ctrl.RunStarting(executor, name)

	cmd := exec.CommandContext(ctx, name, args...)
	out := consoleWriter{ctrl: r.ctrl}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	// Close the run session whatever happened to the process.
	r.ctrl.RunTerminated(exitCode)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return exitCode, fmt.Errorf("run timed out: %w", ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return exitCode, err
	}
	return exitCode, nil
}
