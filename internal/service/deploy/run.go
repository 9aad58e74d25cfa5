package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/console"
	"github.com/oshokin/firmware-deploy/internal/domain/firmware"
	"github.com/oshokin/firmware-deploy/internal/logger"
	"github.com/oshokin/firmware-deploy/internal/process"
	"github.com/oshokin/firmware-deploy/internal/repository/lock"
	"github.com/oshokin/firmware-deploy/internal/repository/marker"
	"github.com/oshokin/firmware-deploy/internal/repository/record"
	"github.com/oshokin/firmware-deploy/internal/service/builder"
	"github.com/oshokin/firmware-deploy/internal/service/envcheck"
	"github.com/oshokin/firmware-deploy/internal/service/publisher"
)

// Title is printed in the banner.
const Title = "ESP32 Firmware Auto Deploy Tool"

var errMissingDependency = errors.New("deploy dependency is not set")

// Options are inputs accepted by the deploy entry point.
type Options struct {
	// Config holds the resolved settings for this run.
	Config config.Config
	// Version is the explicit version from the command line, empty to auto-increment.
	Version string
	// Runner executes the compiler and git.
	Runner process.Runner
	// Prompter answers the confirmation gate.
	Prompter console.Prompter
	// Printer receives the human-facing output.
	Printer *console.Printer
	// LockDir holds the run lock; empty means the OS temp directory.
	LockDir string
}

// Report is what a run went through.
type Report struct {
	// Stage is the terminal stage reached.
	Stage Stage
	// FailedAt is the stage that failed, set only when Stage is StageFailed.
	FailedAt Stage
	// Tools are the probed executables.
	Tools []envcheck.Tool
	// Resolution is the chosen version.
	Resolution *firmware.Resolution
	// Release is the built firmware.
	Release *firmware.Release
	// Publish is the outcome of the publish step.
	Publish *publisher.Result
}

// runner holds the state of a single deploy execution.
type runner struct {
	opts    *Options
	cfg     config.Config
	printer *console.Printer
	records *record.FileRepository
	report  *Report
}

// Run executes the deploy and is the public entry point for the CLI.
// The returned error is nil for both success and cancellation; check Report.Stage.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	if opts == nil || opts.Runner == nil || opts.Prompter == nil || opts.Printer == nil {
		return nil, errMissingDependency
	}

	ctx = logger.WithName(ctx, "firmware-deploy")

	r := &runner{
		opts:    opts,
		cfg:     opts.Config,
		printer: opts.Printer,
		records: record.NewFileRepository(record.PathFor(opts.Config)),
		report:  &Report{Stage: StageStart},
	}

	if err := r.run(ctx); err != nil {
		r.fail(ctx, err)

		return r.report, fmt.Errorf("%s: %w", r.report.FailedAt, err)
	}

	return r.report, nil
}

func (r *runner) run(ctx context.Context) error {
	r.printer.Banner(Title)

	if err := r.checkEnvironment(ctx); err != nil {
		return err
	}

	if err := r.resolveVersion(ctx); err != nil {
		return err
	}

	proceed, err := r.confirm(ctx)
	if err != nil {
		return err
	}

	if !proceed {
		r.enter(ctx, StageCancelled)
		r.printer.Line("Cancelled.")

		return nil
	}

	r.enter(ctx, StageBuild)

	runLock, err := r.acquireLock(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := runLock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Could not release deploy lock", "error", releaseErr)
		}
	}()

	if err = r.build(ctx); err != nil {
		return err
	}

	if err = r.writeVersion(ctx); err != nil {
		return err
	}

	if err = r.publish(ctx); err != nil {
		return err
	}

	r.enter(ctx, StageDone)
	r.printer.Line("")
	r.printer.Success("All done! Devices will pick up the update on their next poll.")

	return nil
}

func (r *runner) enter(ctx context.Context, stage Stage) {
	logger.DebugKV(ctx, "Entering stage", "stage", string(stage))

	r.report.Stage = stage
}

func (r *runner) checkEnvironment(ctx context.Context) error {
	r.enter(ctx, StageEnvCheck)
	r.printer.Header("Checking environment")

	tools, err := envcheck.Check(ctx, r.opts.Runner, r.cfg)
	for _, tool := range tools {
		r.printer.Success("%s: %s", tool.Label, tool.Version)
	}

	r.report.Tools = tools

	return err
}

func (r *runner) resolveVersion(ctx context.Context) error {
	r.enter(ctx, StageResolveVersion)

	content, found, err := marker.Read(r.cfg.Path(r.cfg.VersionFile))
	if err != nil {
		return err
	}

	resolution, err := firmware.Resolve(r.opts.Version, content, found)
	if err != nil {
		return err
	}

	if resolution.Source == firmware.SourceExplicit && !firmware.IsSemantic(resolution.Version) {
		logger.WarnKV(ctx, "Explicit version is not a semantic version, using it as is",
			"version", resolution.Version)
	}

	logger.InfoKV(ctx, "Version resolved",
		"version", resolution.Version, "previous", resolution.Previous, "source", string(resolution.Source))

	r.report.Resolution = resolution

	r.printer.Line("")

	if resolution.Previous != "" {
		r.printer.Line("Current version: %s", resolution.Previous)
	}

	r.printer.Line("New version: %s", resolution.Version)

	return nil
}

func (r *runner) confirm(ctx context.Context) (bool, error) {
	r.enter(ctx, StageConfirm)

	proceed, err := r.opts.Prompter.Confirm("Continue?")
	if errors.Is(err, console.ErrNoInput) {
		logger.Warn(ctx, "No answer on standard input, treating it as no")

		return false, nil
	}

	if err != nil {
		return false, err
	}

	return proceed, nil
}

func (r *runner) acquireLock(ctx context.Context) (*lock.Lock, error) {
	path, err := lock.PathFor(r.opts.LockDir, r.cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	runLock, err := lock.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Deploy lock acquired", "path", runLock.Path())

	return runLock, nil
}

// build expects the run to be in StageBuild already, so a held lock fails there too.
func (r *runner) build(ctx context.Context) error {
	r.printer.Header("Building Firmware")

	hooks := builder.Hooks{
		OnSketch: func(sketch string, _ int) {
			r.printer.Line("Sketch: %s", sketch)
			r.printer.Line("Board: %s", r.cfg.BoardFQBN)
		},
		OnCompile: func(cmd process.Command) func() {
			r.printer.Line("Command: %s", cmd.String())

			return r.printer.Spin("Compiling...")
		},
	}

	release, err := builder.Build(ctx, r.opts.Runner, r.cfg, r.report.Resolution.Version, hooks)
	if err != nil {
		return err
	}

	r.report.Release = release

	r.printer.Success("Build succeeded!")
	r.printer.Success("Firmware: %s (%s bytes)", release.Firmware, formatCount(release.Size))

	r.saveRecord(ctx)

	return nil
}

func (r *runner) writeVersion(ctx context.Context) error {
	r.enter(ctx, StageWriteVersion)
	r.printer.Header("Updating Version")

	if err := marker.Write(r.cfg.Path(r.cfg.VersionFile), r.report.Resolution.Version); err != nil {
		return err
	}

	r.printer.Success("Version updated: %s", r.report.Resolution.Version)

	return nil
}

func (r *runner) publish(ctx context.Context) error {
	r.enter(ctx, StagePublish)
	r.printer.Header("Deploying to GitHub")

	hooks := publisher.Hooks{
		OnStaged: func(files []string) {
			r.printer.Success("Added: %s", strings.Join(files, ", "))
		},
		OnCommitted: func(message string) {
			r.printer.Success("Committed: %s", message)
		},
		OnPush: func(process.Command) func() {
			return r.printer.Spin(fmt.Sprintf("Pushing to %s...", r.cfg.Branch))
		},
	}

	result, err := publisher.Publish(ctx, r.opts.Runner, r.cfg, r.report.Resolution.Version, hooks)
	if err != nil {
		return err
	}

	r.report.Publish = result

	if result.Skipped {
		r.printer.Info("No changes to commit")

		return nil
	}

	r.printer.Success("Pushed to GitHub!")

	if r.report.Release != nil {
		r.report.Release.Published = true
		r.report.Release.CommitMessage = result.CommitMessage
		r.saveRecord(ctx)
	}

	r.printer.Line("")
	r.printer.Table("Deployment successful!", [][2]string{
		{"Version", r.report.Resolution.Version},
		{"Repository", result.Links.Repository},
		{"Firmware URL", result.Links.Firmware},
		{"Version URL", result.Links.Version},
	})

	return nil
}

// saveRecord persists the release next to the build output; failures only warn.
func (r *runner) saveRecord(ctx context.Context) {
	if err := r.records.Save(ctx, r.report.Release); err != nil {
		logger.WarnKV(ctx, "Could not save release record", "path", r.records.Path(), "error", err)
	}
}

// fail moves the run to StageFailed and prints what the operator needs to fix it.
func (r *runner) fail(ctx context.Context, err error) {
	r.report.FailedAt = r.report.Stage
	r.enter(ctx, StageFailed)

	logger.ErrorKV(ctx, "Deploy failed", "stage", string(r.report.FailedAt), "error", err)

	var missing *envcheck.MissingToolError

	switch {
	case errors.As(err, &missing):
		r.printer.Failure("%s not found!", missing.Tool.Label)

		if missing.Tool.InstallHint != "" {
			r.printer.Line("  %s", missing.Tool.InstallHint)
		}

		return
	case errors.Is(err, builder.ErrNoSketch):
		r.printer.Failure("No sketch found (%s)!", r.cfg.SourcePattern)
	case errors.Is(err, builder.ErrCompileFailed):
		r.printer.Failure("Build failed!")
	case errors.Is(err, builder.ErrNoArtifact):
		r.printer.Failure("No firmware image found (%s in %s)!", r.cfg.ArtifactPattern, r.cfg.BuildDir)
	case errors.Is(err, publisher.ErrCommitFailed):
		r.printer.Failure("Commit failed!")
	case errors.Is(err, publisher.ErrPushFailed):
		r.printer.Failure("Push failed!")
	default:
		r.printer.Failure("%v", err)
	}

	var cmdErr *process.CommandError
	if errors.As(err, &cmdErr) {
		r.printer.Diagnostics(cmdErr.Output)
	}

	if errors.Is(err, publisher.ErrPushFailed) {
		r.printer.Checklist("Make sure that:", publisher.Remediation(r.cfg))
	}
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
