package record

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/firmware-deploy/internal/domain/firmware"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), Filename))

	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad ensures Save followed by Load returns an equal release.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	// Parent directory does not exist yet, as before the first build.
	file := filepath.Join(t.TempDir(), "build", Filename)
	repo := NewFileRepository(file)

	want := &firmware.Release{
		Version:       "2.3.10",
		Sketch:        "monitor.ino",
		Board:         "esp32:esp32:esp32",
		Artifact:      "build/monitor.ino.bin",
		Firmware:      "firmware.bin",
		Size:          1_048_576,
		Checksum:      "c2hhNTEy",
		BuiltAt:       time.Now().UTC().Truncate(time.Millisecond),
		Published:     true,
		CommitMessage: "Release version 2.3.10",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.BuiltAt.Unix(), got.BuiltAt.Unix())

	got.BuiltAt = want.BuiltAt
	require.Equal(t, want, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}

// TestFileRepository_Corrupt surfaces decode errors.
func TestFileRepository_Corrupt(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), Filename)
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o600))

	_, err := NewFileRepository(file).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_SaveNil rejects a nil release.
func TestFileRepository_SaveNil(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), Filename))
	require.ErrorIs(t, repo.Save(context.Background(), nil), errNilRelease)
}
