// Package version exposes build metadata of the deploy tool itself,
// not of the firmware it publishes.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version
