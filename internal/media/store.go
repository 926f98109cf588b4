package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/roelfdiedericks/lilybear/internal/logging"
)

// StagePrefix is the name prefix of every staged upload.
const StagePrefix = "lilybear-"

// Stage writes data to <dir>/lilybear-<uuid><ext> and returns the path.
// An empty dir means the OS temp directory. The file is readable only by
// the owner; callers remove it with Remove when done.
func Stage(dir string, data []byte, ext string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	dir = filepath.Clean(dir)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	path := filepath.Join(dir, StagePrefix+uuid.NewString()+ext)

	// O_EXCL: never reuse an existing name
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close staging file: %w", err)
	}

	logging.L_trace("media: staged upload", "path", path, "bytes", len(data))
	return path, nil
}
