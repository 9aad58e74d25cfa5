package process

import (
	"fmt"
)

// CommandError describes a command that ran and failed.
// It wraps a step-specific sentinel so callers can match with errors.Is
// and still reach the captured output with errors.As.
type CommandError struct {
	// Kind is the sentinel classifying the failure.
	Kind error
	// Command is the invocation that failed.
	Command Command
	// ExitCode is the process exit code.
	ExitCode int
	// Output is what the process printed, stderr first.
	Output string
}

// NewCommandError builds a CommandError from a finished result.
func NewCommandError(kind error, cmd Command, result *Result) *CommandError {
	cmdErr := &CommandError{
		Kind:    kind,
		Command: cmd,
	}

	if result != nil {
		cmdErr.ExitCode = result.ExitCode
		cmdErr.Output = result.Output()
	}

	return cmdErr
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%v: %q exited with code %d", e.Kind, e.Command.String(), e.ExitCode)
}

// Unwrap exposes Kind to errors.Is.
func (e *CommandError) Unwrap() error {
	return e.Kind
}
