package envcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/logger"
	"github.com/oshokin/firmware-deploy/internal/process"
)

// ErrToolMissing is returned when a required executable cannot be started.
var ErrToolMissing = errors.New("required tool not found")

// compilerInstallHint points to the compiler CLI installation guide.
const compilerInstallHint = "https://arduino.github.io/arduino-cli/"

// Tool is one probed executable.
type Tool struct {
	// Label is the human name, e.g. "Arduino CLI".
	Label string
	// Probe is the version query.
	Probe process.Command
	// InstallHint tells the operator how to get the tool.
	InstallHint string
	// Version is the trimmed probe output, filled by Check.
	Version string
}

// Tools lists the executables the deploy needs for cfg.
func Tools(cfg config.Config) []Tool {
	return []Tool{
		{
			Label:       "Arduino CLI",
			Probe:       process.Command{Name: cfg.CompilerCLI, Args: []string{"version"}, Dir: cfg.WorkDir},
			InstallHint: "Install: " + compilerInstallHint,
		},
		{
			Label: "Git",
			Probe: process.Command{Name: cfg.GitCLI, Args: []string{"--version"}, Dir: cfg.WorkDir},
		},
	}
}

// MissingToolError names the tool that could not be started.
type MissingToolError struct {
	Tool Tool
	Err  error
}

// Error implements error.
func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Tool.Label, e.Tool.Probe.Name, e.Err)
}

// Unwrap lets errors.Is match both ErrToolMissing and the runner error.
func (e *MissingToolError) Unwrap() []error {
	return []error{ErrToolMissing, e.Err}
}

// Check probes every tool in order and stops at the first one that cannot run.
// A probe that runs but exits nonzero still proves the tool exists and only logs a warning.
func Check(ctx context.Context, runner process.Runner, cfg config.Config) ([]Tool, error) {
	ctx = logger.WithName(ctx, "envcheck")

	tools := Tools(cfg)

	for i := range tools {
		tool := &tools[i]

		version, err := probe(ctx, runner, cfg, tool.Probe)
		if err != nil {
			if errors.Is(err, process.ErrNotFound) {
				return tools[:i], &MissingToolError{Tool: *tool, Err: err}
			}

			return tools[:i], fmt.Errorf("probe %s: %w", tool.Label, err)
		}

		tool.Version = version

		logger.DebugKV(ctx, "Tool found", "tool", tool.Label, "version", version)
	}

	return tools, nil
}

func probe(ctx context.Context, runner process.Runner, cfg config.Config, cmd process.Command) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	result, err := runner.Run(probeCtx, cmd)
	if err != nil {
		return "", err
	}

	if !result.Success() {
		logger.WarnKV(ctx, "Version probe exited with error",
			"command", cmd.String(), "exit_code", result.ExitCode, "output", result.Output())
	}

	return strings.TrimSpace(result.Stdout), nil
}
