package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks default filling and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty config is filled with defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, Default(), *cfg)

	// Bad board name.
	cfg = &Config{BoardFQBN: "esp32"}
	require.ErrorIs(t, Validate(cfg), errInvalidFQBN)

	cfg = &Config{BoardFQBN: "esp32::esp32"}
	require.ErrorIs(t, Validate(cfg), errInvalidFQBN)

	// Bad repository.
	cfg = &Config{Repository: "esp32-power-monitor"}
	require.ErrorIs(t, Validate(cfg), errInvalidRepository)

	// Bad glob.
	cfg = &Config{SourcePattern: "[.ino"}
	require.ErrorIs(t, Validate(cfg), errInvalidPattern)

	// Bad raw host.
	cfg = &Config{RawBaseURL: "not a url"}
	require.Error(t, Validate(cfg))

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.BoardFQBN = "esp32:esp32:esp32s3"
	cfg.Repository = "acme/greenhouse"
	cfg.Branch = "release"
	cfg.ProbeTimeout = 3 * time.Second

	require.NoError(t, Save(path, &cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, *loaded)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoadPartialFileKeepsDefaults verifies fields absent from YAML keep their default values.
func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("branch: stable\n"), DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "stable", cfg.Branch)
	require.Equal(t, "arduino-cli", cfg.CompilerCLI)
	require.Equal(t, "version.txt", cfg.VersionFile)
}

// TestLoadOrDefault returns defaults for a missing file and surfaces parse errors.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("branch: [\n"), DefaultFilePermissions))

	_, err = LoadOrDefault(broken)
	require.Error(t, err)
}

// TestURLs checks repository and raw-content URL construction.
func TestURLs(t *testing.T) {
	t.Parallel()

	cfg := Default()

	require.Equal(t, "https://github.com/honghuynhit/esp32-power-monitor", cfg.RepositoryURL())
	require.Equal(t,
		"https://raw.githubusercontent.com/honghuynhit/esp32-power-monitor/main/firmware.bin",
		cfg.RawURL(cfg.FirmwareFile))

	cfg.RawBaseURL = "https://raw.example.com/"
	require.Equal(t, "https://raw.example.com/honghuynhit/esp32-power-monitor/main/version.txt", cfg.RawURL("version.txt"))
}

// TestPath resolves names relative to the working directory.
func TestPath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.WorkDir = "/src/monitor"

	require.Equal(t, filepath.Join("/src/monitor", "firmware.bin"), cfg.Path("firmware.bin"))
	require.Equal(t, filepath.Clean("/tmp/out.bin"), cfg.Path("/tmp/out.bin"))
}
