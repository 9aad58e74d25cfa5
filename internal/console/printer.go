package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
)

const (
	ruleWidth     = 50
	spinnerDelay  = 100 * time.Millisecond
	spinnerCharID = 11
)

// Printer writes human-facing output.
type Printer struct {
	out      io.Writer
	terminal bool
}

// NewPrinter creates a Printer over out. Colors and the spinner are enabled
// only when out is a terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:      out,
		terminal: isTerminal(out),
	}
}

// Banner prints the tool title.
func (p *Printer) Banner(title string) {
	border := strings.Repeat("═", len(title)+6)

	p.println("")
	p.println("╔" + border + "╗")
	p.println("║   " + title + "   ║")
	p.println("╚" + border + "╝")
}

// Header prints a section header.
func (p *Printer) Header(title string) {
	rule := strings.Repeat("=", ruleWidth)

	p.println("")
	p.println(rule)
	p.println("  " + title)
	p.println(rule)
}

// Success prints a ✓ line.
func (p *Printer) Success(format string, args ...any) {
	p.println(p.color(text.FgGreen, "✓") + " " + fmt.Sprintf(format, args...))
}

// Failure prints a ✗ line.
func (p *Printer) Failure(format string, args ...any) {
	p.println(p.color(text.FgRed, "✗") + " " + fmt.Sprintf(format, args...))
}

// Info prints an ℹ line.
func (p *Printer) Info(format string, args ...any) {
	p.println(p.color(text.FgCyan, "ℹ") + " " + fmt.Sprintf(format, args...))
}

// Line prints a plain line.
func (p *Printer) Line(format string, args ...any) {
	p.println(fmt.Sprintf(format, args...))
}

// Diagnostics prints captured tool output, indented.
func (p *Printer) Diagnostics(output string) {
	output = strings.TrimSpace(output)
	if output == "" {
		return
	}

	for _, line := range strings.Split(output, "\n") {
		p.println("  " + line)
	}
}

// Checklist prints a numbered list under a title.
func (p *Printer) Checklist(title string, items []string) {
	p.println("")
	p.println(title)

	for i, item := range items {
		p.println(fmt.Sprintf("%d. %s", i+1, item))
	}
}

// Table renders key/value rows with a title.
func (p *Printer) Table(title string, rows [][2]string) {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetTitle(title)

	for _, row := range rows {
		t.AppendRow(table.Row{row[0], row[1]})
	}

	if p.terminal {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}

	t.Render()
}

// Spin shows a spinner with suffix until the returned stop function is called.
// Without a terminal it prints the suffix once instead.
func (p *Printer) Spin(suffix string) func() {
	if !p.terminal {
		p.println(suffix)

		return func() {}
	}

	loader := spinner.New(spinner.CharSets[spinnerCharID], spinnerDelay, spinner.WithWriter(p.out))
	loader.Color("yellow") //nolint:errcheck // Color names are constant.
	loader.Suffix = " " + suffix
	loader.Start()

	return loader.Stop
}

func (p *Printer) color(c text.Color, s string) string {
	if !p.terminal {
		return s
	}

	return c.Sprint(s)
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.out, s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}
