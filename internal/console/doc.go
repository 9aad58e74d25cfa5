// Package console renders what the operator reads and asks them questions.
//
// Printer writes section headers, status lines, diagnostics and summary
// tables. The spinner only animates when the output is a terminal, so
// redirected output and tests stay plain.
package console
