package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/domain/firmware"
	"github.com/oshokin/firmware-deploy/internal/logger"
	"github.com/oshokin/firmware-deploy/internal/process"
)

var (
	// ErrStatusFailed is returned when the working tree status cannot be read.
	ErrStatusFailed = errors.New("git status failed")
	// ErrStageFailed is returned when a file cannot be staged.
	ErrStageFailed = errors.New("git add failed")
	// ErrCommitFailed is returned when the release commit fails.
	ErrCommitFailed = errors.New("git commit failed")
	// ErrPushFailed is returned when the push to the remote fails.
	ErrPushFailed = errors.New("git push failed")
)

// Result describes what Publish did.
type Result struct {
	// Skipped is true when the working tree was clean and nothing was committed.
	Skipped bool
	// Staged lists the files added to the commit.
	Staged []string
	// CommitMessage is the message used for the release commit.
	CommitMessage string
	// Links are the URLs devices download from.
	Links Links
}

// Links are the published locations of a release.
type Links struct {
	Repository string
	Firmware   string
	Version    string
}

// Hooks lets the caller report progress.
type Hooks struct {
	// OnStaged is called after the files are staged.
	OnStaged func(files []string)
	// OnCommitted is called after the commit succeeded.
	OnCommitted func(message string)
	// OnPush is called before the push starts; the returned function is
	// called when it finishes.
	OnPush func(cmd process.Command) func()
}

// LinksFor builds the URLs of the firmware and marker for cfg.
func LinksFor(cfg config.Config) Links {
	return Links{
		Repository: cfg.RepositoryURL(),
		Firmware:   cfg.RawURL(cfg.FirmwareFile),
		Version:    cfg.RawURL(cfg.VersionFile),
	}
}

// Remediation is the checklist shown when a push fails.
func Remediation(cfg config.Config) []string {
	return []string{
		fmt.Sprintf("git remote add %s %s.git", cfg.Remote, cfg.RepositoryURL()),
		"git config credential.helper store",
		"you have push access to " + cfg.Repository,
	}
}

// Publish stages the firmware and marker, commits and pushes.
// A clean working tree is not an error: Result.Skipped is set and nothing else runs.
func Publish(ctx context.Context, runner process.Runner, cfg config.Config, version string, hooks Hooks) (*Result, error) {
	ctx = logger.WithName(ctx, "publisher")

	g := git{runner: runner, cfg: cfg}

	pending, err := g.pendingChanges(ctx)
	if err != nil {
		return nil, err
	}

	if !pending {
		logger.Info(ctx, "Working tree is clean, nothing to publish")

		return &Result{Skipped: true}, nil
	}

	files := []string{cfg.FirmwareFile, cfg.VersionFile}
	for _, file := range files {
		if err = g.run(ctx, ErrStageFailed, "add", file); err != nil {
			return nil, err
		}
	}

	if hooks.OnStaged != nil {
		hooks.OnStaged(files)
	}

	message := firmware.CommitMessage(version)
	if err = g.run(ctx, ErrCommitFailed, "commit", "-m", message); err != nil {
		return nil, err
	}

	if hooks.OnCommitted != nil {
		hooks.OnCommitted(message)
	}

	pushCmd := g.command("push", cfg.Remote, cfg.Branch)

	done := func() {}
	if hooks.OnPush != nil {
		done = hooks.OnPush(pushCmd)
	}

	err = g.exec(ctx, ErrPushFailed, pushCmd)

	done()

	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Release pushed", "version", version, "remote", cfg.Remote, "branch", cfg.Branch)

	return &Result{
		Staged:        files,
		CommitMessage: message,
		Links:         LinksFor(cfg),
	}, nil
}

// git runs subcommands of the configured git executable in WorkDir.
type git struct {
	runner process.Runner
	cfg    config.Config
}

func (g git) command(args ...string) process.Command {
	return process.Command{Name: g.cfg.GitCLI, Args: args, Dir: g.cfg.WorkDir}
}

func (g git) run(ctx context.Context, kind error, args ...string) error {
	return g.exec(ctx, kind, g.command(args...))
}

func (g git) exec(ctx context.Context, kind error, cmd process.Command) error {
	result, err := g.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}

	if !result.Success() {
		return process.NewCommandError(kind, cmd, result)
	}

	return nil
}

// pendingChanges reports whether `git status --porcelain` lists anything.
func (g git) pendingChanges(ctx context.Context) (bool, error) {
	cmd := g.command("status", "--porcelain")

	result, err := g.runner.Run(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStatusFailed, err)
	}

	if !result.Success() {
		return false, process.NewCommandError(ErrStatusFailed, cmd, result)
	}

	return strings.TrimSpace(result.Stdout) != "", nil
}
