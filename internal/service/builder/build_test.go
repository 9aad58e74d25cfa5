package builder

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/process"
	"github.com/oshokin/firmware-deploy/internal/process/processtest"
)

// newConfig returns defaults rooted in a fresh temp directory.
func newConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.WorkDir = t.TempDir()

	return cfg
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// compileProduces returns a scripted compile step that drops files into the build directory.
func compileProduces(cfg config.Config, files map[string][]byte) processtest.Step {
	return processtest.Step{
		Match: "compile",
		Do: func(process.Command) error {
			if err := os.MkdirAll(cfg.Path(cfg.BuildDir), 0o755); err != nil {
				return err
			}

			for name, data := range files {
				if err := os.WriteFile(filepath.Join(cfg.Path(cfg.BuildDir), name), data, 0o600); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// TestBuild_CopiesArtifact compiles, picks the application image and copies it with its checksum.
func TestBuild_CopiesArtifact(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("monitor.ino"), []byte("void setup() {}"))

	image := []byte("application image")
	runner := processtest.New(compileProduces(cfg, map[string][]byte{
		"monitor.ino.bin":            image,
		"monitor.ino.bootloader.bin": []byte("bootloader"),
		"monitor.ino.merged.bin":     []byte("merged"),
		"monitor.ino.partitions.bin": []byte("partitions"),
	}))

	var (
		seenSketch  string
		compileDone bool
	)

	hooks := Hooks{
		OnSketch: func(sketch string, _ int) { seenSketch = sketch },
		OnCompile: func(process.Command) func() {
			return func() { compileDone = true }
		},
	}

	release, err := Build(context.Background(), runner, cfg, "1.0.1", hooks)
	require.NoError(t, err)
	require.Equal(t, "monitor.ino", seenSketch)
	require.True(t, compileDone)

	require.Equal(t, "1.0.1", release.Version)
	require.Equal(t, "monitor.ino", release.Sketch)
	require.Equal(t, filepath.Join("build", "monitor.ino.bin"), release.Artifact)
	require.Equal(t, "firmware.bin", release.Firmware)
	require.Equal(t, int64(len(image)), release.Size)

	sum := sha512.Sum512(image)
	require.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), release.Checksum)

	got, err := os.ReadFile(cfg.Path("firmware.bin"))
	require.NoError(t, err)
	require.Equal(t, image, got)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "arduino-cli", calls[0].Name)
	require.Equal(t, []string{"compile", "--fqbn", "esp32:esp32:esp32", "--output-dir", "build", "monitor.ino"}, calls[0].Args)
	require.Equal(t, cfg.WorkDir, calls[0].Dir)
}

// TestBuild_OverwritesPreviousFirmware replaces an older copy.
func TestBuild_OverwritesPreviousFirmware(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("monitor.ino"), nil)
	writeFile(t, cfg.Path("firmware.bin"), []byte("old firmware that was much longer than the new one"))

	runner := processtest.New(compileProduces(cfg, map[string][]byte{"monitor.ino.bin": []byte("new")}))

	_, err := Build(context.Background(), runner, cfg, "1.0.2", Hooks{})
	require.NoError(t, err)

	got, err := os.ReadFile(cfg.Path("firmware.bin"))
	require.NoError(t, err)
	require.Equal(t, "new", string(got))
}

// TestBuild_FailedCopyLeavesNoFirmware removes the placeholder created for a first copy when the copy fails.
func TestBuild_FailedCopyLeavesNoFirmware(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("monitor.ino"), nil)

	// A directory where the staged copy goes makes the replace fail.
	require.NoError(t, os.MkdirAll(cfg.Path(".firmware.bin.new"), 0o755))

	runner := processtest.New(compileProduces(cfg, map[string][]byte{"monitor.ino.bin": []byte("image")}))

	_, err := Build(context.Background(), runner, cfg, "1.0.0", Hooks{})
	require.Error(t, err)
	require.NoFileExists(t, cfg.Path("firmware.bin"))
}

// TestBuild_NoSketch fails before running anything and writes nothing.
func TestBuild_NoSketch(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("README.md"), []byte("# monitor"))

	runner := processtest.New()

	release, err := Build(context.Background(), runner, cfg, "1.0.0", Hooks{})
	require.ErrorIs(t, err, ErrNoSketch)
	require.Nil(t, release)
	require.Empty(t, runner.Calls())

	_, err = os.Stat(cfg.Path("firmware.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(cfg.Path(cfg.BuildDir))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestBuild_CompileFails leaves the existing firmware untouched and carries the compiler output.
func TestBuild_CompileFails(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("monitor.ino"), nil)
	writeFile(t, cfg.Path("firmware.bin"), []byte("previous release"))

	before, err := os.Stat(cfg.Path("firmware.bin"))
	require.NoError(t, err)

	runner := processtest.New(processtest.Step{
		Match:  "compile",
		Result: process.Result{Stderr: "monitor.ino:1:10: fatal error: WiFi.h: No such file", ExitCode: 1},
	})

	_, err = Build(context.Background(), runner, cfg, "1.0.1", Hooks{})
	require.ErrorIs(t, err, ErrCompileFailed)

	var cmdErr *process.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Contains(t, cmdErr.Output, "WiFi.h")

	after, err := os.Stat(cfg.Path("firmware.bin"))
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())

	got, err := os.ReadFile(cfg.Path("firmware.bin"))
	require.NoError(t, err)
	require.Equal(t, "previous release", string(got))
}

// TestBuild_NoArtifact fails when the compiler succeeded but produced no image.
func TestBuild_NoArtifact(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("monitor.ino"), nil)

	runner := processtest.New(compileProduces(cfg, map[string][]byte{"monitor.ino.elf": []byte("elf")}))

	_, err := Build(context.Background(), runner, cfg, "1.0.1", Hooks{})
	require.ErrorIs(t, err, ErrNoArtifact)

	_, err = os.Stat(cfg.Path("firmware.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFindSketch picks the first match in lexical order and reports the count.
func TestFindSketch(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, cfg.Path("zeta.ino"), nil)
	writeFile(t, cfg.Path("alpha.ino"), nil)

	sketch, matches, err := FindSketch(cfg)
	require.NoError(t, err)
	require.Equal(t, "alpha.ino", sketch)
	require.Equal(t, 2, matches)
}

// TestFindArtifact falls back to the first image when no sketch-named one exists.
func TestFindArtifact(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	writeFile(t, filepath.Join(cfg.Path(cfg.BuildDir), "b.bin"), nil)
	writeFile(t, filepath.Join(cfg.Path(cfg.BuildDir), "a.bin"), nil)

	artifact, err := FindArtifact(cfg, "monitor.ino")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("build", "a.bin"), artifact)
}

// TestGetFileChecksum matches the standard library digest.
func TestGetFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "firmware.bin")
	writeFile(t, path, []byte("payload"))

	got, err := GetFileChecksum(path)
	require.NoError(t, err)

	want := sha512.Sum512([]byte("payload"))
	require.Equal(t, want[:], got)
}
