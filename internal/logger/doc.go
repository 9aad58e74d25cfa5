// Package logger wraps zap for the deploy tool:
//   - a global sugared logger writing console-encoded lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, WarnKV, etc.).
//
// Services take a context and pull the logger from it, so a step's name and
// fields follow every line it writes. Human-facing output lives in the
// console package; this one is for diagnostics.
package logger
