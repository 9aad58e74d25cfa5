package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/firmware-deploy/internal/logger"
)

// ErrAlreadyRunning is returned when another live deploy holds the lock.
var ErrAlreadyRunning = errors.New("another deploy is already running for this directory")

const (
	filePrefix   = "firmware-deploy-"
	fileSuffix   = ".lock"
	hashPrefixSz = 12
	lockFileMode = 0o600
)

// Lock is a held run lock.
type Lock struct {
	path string
}

// PathFor returns the lock path for the working directory workDir inside dir.
// An empty dir means os.TempDir().
func PathFor(dir, workDir string) (string, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}

	if dir == "" {
		dir = os.TempDir()
	}

	sum := sha256.Sum256([]byte(abs))

	return filepath.Join(dir, filePrefix+hex.EncodeToString(sum[:])[:hashPrefixSz]+fileSuffix), nil
}

// Acquire takes the lock at path, replacing it when its owner is no longer alive.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	if err := create(path); err == nil {
		return &Lock{path: path}, nil
	} else if !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	pid, alive := owner(path)
	if alive {
		return nil, fmt.Errorf("%w (pid %d, lock %s)", ErrAlreadyRunning, pid, path)
	}

	logger.WarnKV(ctx, "Removing stale deploy lock", "path", path, "pid", pid)

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale lock: %w", err)
	}

	if err := create(path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
		}

		return nil, err
	}

	return &Lock{path: path}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

// create writes our PID into a new lock file, failing with os.ErrExist if present.
func create(path string) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}

		return fmt.Errorf("create lock: %w", err)
	}

	if _, err = file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = file.Close()

		return fmt.Errorf("write lock: %w", err)
	}

	return file.Close()
}

// owner reads the PID from the lock and checks whether that process still exists.
// Unreadable or foreign content counts as stale.
func owner(path string) (int, bool) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return pid, false
	}

	return pid, true
}
