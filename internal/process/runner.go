package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"github.com/oshokin/firmware-deploy/internal/logger"
)

// ErrNotFound is returned when the executable cannot be located or started.
var ErrNotFound = errors.New("executable not found")

// Command describes one invocation.
type Command struct {
	// Name is the executable, looked up on PATH unless it contains a separator.
	Name string
	// Args are passed verbatim.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
}

// String renders the command line the way a user would type it.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is what a finished process left behind.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports a zero exit code.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Output returns stderr, or stdout when stderr is empty.
// Compilers and git disagree on where they print failures.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}

	if out := strings.TrimSpace(r.Stderr); out != "" {
		return out
	}

	return strings.TrimSpace(r.Stdout)
}

// Runner executes a command to completion.
// A non-nil error means the process never ran; a nonzero exit is reported
// through Result.ExitCode instead.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts cmd, waits for it and captures both output streams.
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	logger.DebugKV(ctx, "Running command", "command", cmd.String(), "dir", cmd.Dir)

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer

	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	err := execCmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run %s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()

		logger.DebugKV(ctx, "Command exited with error", "command", cmd.Name, "exit_code", result.ExitCode)

		return result, nil
	}

	// Lookup failures on PATH come back as exec.ErrNotFound, explicit paths
	// as *fs.PathError from fork/exec.
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%s: %w", cmd.Name, ErrNotFound)
	}

	return nil, fmt.Errorf("run %s: %w", cmd.Name, err)
}
