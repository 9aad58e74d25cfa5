package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when input ends before an answer is given.
var ErrNoInput = errors.New("no answer on input")

// affirmative is the only answer that lets a run proceed.
const affirmative = "y"

// Prompter asks yes/no questions.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// LinePrompter reads one line per question.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a prompter reading from in and asking on out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm prints question and reports whether the answer was "y" (any case).
// An answer without a trailing newline at end of input still counts.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "\n%s (y/N): ", question); err != nil {
		return false, fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}

	if errors.Is(err, io.EOF) && line == "" {
		return false, ErrNoInput
	}

	return strings.ToLower(strings.TrimSpace(line)) == affirmative, nil
}

// Always is a Prompter that answers yes without asking.
type Always struct{}

// Confirm implements Prompter.
func (Always) Confirm(string) (bool, error) {
	return true, nil
}
