// Package processtest provides a scripted process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oshokin/firmware-deploy/internal/process"
)

// Step is a scripted reaction to a command whose line starts with Match.
type Step struct {
	// Match is compared against the command's arguments joined by spaces
	// (without the executable), e.g. "compile" or "push origin main".
	Match string
	// Result is returned when Err is nil.
	Result process.Result
	// Err is returned instead of a result, e.g. process.ErrNotFound.
	Err error
	// Do runs before the result is returned; use it to create build outputs.
	Do func(cmd process.Command) error
}

// Runner replays steps and records every call.
// Unmatched commands succeed with empty output.
type Runner struct {
	mu    sync.Mutex
	steps []Step
	calls []process.Command
}

// New returns a runner answering with steps; the first matching step wins.
func New(steps ...Step) *Runner {
	return &Runner{steps: steps}
}

// Run implements process.Runner.
func (r *Runner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	line := strings.Join(cmd.Args, " ")

	for _, step := range r.steps {
		if !strings.HasPrefix(line, step.Match) {
			continue
		}

		if step.Do != nil {
			if err := step.Do(cmd); err != nil {
				return nil, fmt.Errorf("scripted step %q: %w", step.Match, err)
			}
		}

		if step.Err != nil {
			return nil, step.Err
		}

		result := step.Result

		return &result, nil
	}

	return &process.Result{}, nil
}

// Calls returns the recorded commands in order.
func (r *Runner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]process.Command(nil), r.calls...)
}

// Lines returns recorded argument lines, one per call.
func (r *Runner) Lines() []string {
	calls := r.Calls()
	lines := make([]string, 0, len(calls))

	for _, cmd := range calls {
		lines = append(lines, strings.Join(cmd.Args, " "))
	}

	return lines
}

// Called reports whether any recorded call starts with prefix.
func (r *Runner) Called(prefix string) bool {
	for _, line := range r.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}
