package builder

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/domain/firmware"
	"github.com/oshokin/firmware-deploy/internal/logger"
	"github.com/oshokin/firmware-deploy/internal/process"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

var (
	// ErrNoSketch is returned when no source file matches the pattern.
	ErrNoSketch = errors.New("no sketch source found")
	// ErrCompileFailed is returned when the compiler exits nonzero.
	ErrCompileFailed = errors.New("compile failed")
	// ErrNoArtifact is returned when the build directory holds no image.
	ErrNoArtifact = errors.New("no firmware image produced")

	errHashUnavailable = errors.New("hash function unavailable")
)

const (
	// ChecksumFunction is used for the firmware checksum.
	ChecksumFunction crypto.Hash = crypto.SHA512

	// FirmwareFileMode is the mode of the published firmware copy.
	FirmwareFileMode os.FileMode = 0o644
)

// Hooks lets the caller show progress around the long-running compile.
type Hooks struct {
	// OnSketch is called once the source file is known.
	OnSketch func(sketch string, matches int)
	// OnCompile is called before the compiler starts; the returned
	// function is called when it finishes.
	OnCompile func(cmd process.Command) func()
}

// Build runs discovery, compile, artifact lookup and the copy.
// Nothing is written before the compiler succeeds.
func Build(ctx context.Context, runner process.Runner, cfg config.Config, version string, hooks Hooks) (*firmware.Release, error) {
	ctx = logger.WithName(ctx, "builder")

	sketch, matches, err := FindSketch(cfg)
	if err != nil {
		return nil, err
	}

	if matches > 1 {
		logger.WarnKV(ctx, "Several sketches found, using the first one", "sketch", sketch, "matches", matches)
	}

	if hooks.OnSketch != nil {
		hooks.OnSketch(sketch, matches)
	}

	if err = compile(ctx, runner, cfg, sketch, hooks); err != nil {
		return nil, err
	}

	artifact, err := FindArtifact(cfg, sketch)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Copying firmware", "artifact", artifact, "firmware", cfg.FirmwareFile)

	checksum, size, err := copyArtifact(cfg.Path(artifact), cfg.Path(cfg.FirmwareFile))
	if err != nil {
		return nil, fmt.Errorf("copy %s to %s: %w", artifact, cfg.FirmwareFile, err)
	}

	return &firmware.Release{
		Version:  version,
		Sketch:   sketch,
		Board:    cfg.BoardFQBN,
		Artifact: artifact,
		Firmware: cfg.FirmwareFile,
		Size:     size,
		Checksum: base64.StdEncoding.EncodeToString(checksum),
		BuiltAt:  time.Now().UTC(),
	}, nil
}

// FindSketch returns the first source file (relative to WorkDir) in lexical
// order and how many matched.
func FindSketch(cfg config.Config) (string, int, error) {
	matches, err := glob(cfg, cfg.SketchDir, cfg.SourcePattern)
	if err != nil {
		return "", 0, err
	}

	if len(matches) == 0 {
		return "", 0, fmt.Errorf("%w: %s in %s", ErrNoSketch, cfg.SourcePattern, cfg.Path(cfg.SketchDir))
	}

	return matches[0], len(matches), nil
}

// FindArtifact picks the compiled image for sketch from the build directory.
// "<sketch file>.bin" wins when present, since the compiler also emits
// bootloader and partition images; otherwise the first match in lexical order.
func FindArtifact(cfg config.Config, sketch string) (string, error) {
	matches, err := glob(cfg, cfg.BuildDir, cfg.ArtifactPattern)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s in %s", ErrNoArtifact, cfg.ArtifactPattern, cfg.Path(cfg.BuildDir))
	}

	preferred := filepath.Join(cfg.BuildDir, filepath.Base(sketch)+filepath.Ext(cfg.ArtifactPattern))
	for _, match := range matches {
		if match == preferred {
			return match, nil
		}
	}

	return matches[0], nil
}

// CompileCommand is the compiler invocation for sketch.
func CompileCommand(cfg config.Config, sketch string) process.Command {
	return process.Command{
		Name: cfg.CompilerCLI,
		Args: []string{
			"compile",
			"--fqbn", cfg.BoardFQBN,
			"--output-dir", cfg.BuildDir,
			sketch,
		},
		Dir: cfg.WorkDir,
	}
}

// GetFileChecksum returns checksum bytes for a file using ChecksumFunction.
func GetFileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return checksum(contents)
}

func compile(ctx context.Context, runner process.Runner, cfg config.Config, sketch string, hooks Hooks) error {
	cmd := CompileCommand(cfg, sketch)

	logger.InfoKV(ctx, "Compiling sketch", "sketch", sketch, "board", cfg.BoardFQBN)

	done := func() {}
	if hooks.OnCompile != nil {
		done = hooks.OnCompile(cmd)
	}

	result, err := runner.Run(ctx, cmd)

	done()

	if err != nil {
		return fmt.Errorf("run compiler: %w", err)
	}

	if !result.Success() {
		return process.NewCommandError(ErrCompileFailed, cmd, result)
	}

	return nil
}

// glob returns matches relative to WorkDir, sorted.
func glob(cfg config.Config, dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(cfg.Path(dir), pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	relative := make([]string, 0, len(matches))

	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr != nil || info.IsDir() {
			continue
		}

		rel, relErr := filepath.Rel(cfg.WorkDir, match)
		if relErr != nil {
			rel = match
		}

		relative = append(relative, rel)
	}

	sort.Strings(relative)

	return relative, nil
}

// copyArtifact replaces target with the contents of source and returns the
// checksum and size of what was written.
func copyArtifact(source, target string) ([]byte, int64, error) {
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return nil, 0, err
	}

	sum, err := checksum(data)
	if err != nil {
		return nil, 0, err
	}

	// go-update renames the old target aside, so it has to exist.
	created := false

	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(target, nil, FirmwareFileMode); err != nil {
			return nil, 0, err
		}

		created = true
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: FirmwareFileMode,
		Checksum:   sum,
		Hash:       ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if created {
			_ = os.Remove(target)
		}

		return nil, 0, fmt.Errorf("apply: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, 0, err
	}

	return sum, info.Size(), nil
}

func checksum(data []byte) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}
