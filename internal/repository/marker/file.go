package marker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/firmware-deploy/internal/config"
)

// Read returns the raw marker content; found is false when the file does not exist.
func Read(path string) (content string, found bool, err error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("read version marker: %w", err)
	}

	return string(data), true, nil
}

// Write overwrites the marker with version and a trailing newline.
// The write is not atomic.
func Write(path, version string) error {
	if err := os.WriteFile(filepath.Clean(path), []byte(version+"\n"), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}

	return nil
}
