package logging

import (
	"os"
	"path/filepath"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// DefaultLogDir returns ~/.amansearch/logs, or a temp dir when the home
// directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amansearch", "logs")
	}
	return filepath.Join(home, ".amansearch", "logs")
}

// LogPath returns the server log path inside dir, or inside the default
// directory when dir is empty.
func LogPath(dir string) string {
	if dir == "" {
		dir = DefaultLogDir()
	}
	return filepath.Join(dir, "server.log")
}

// FindLogFile returns explicit when given, otherwise the server log in dir.
func FindLogFile(explicit, dir string) (string, error) {
	path := explicit
	if path == "" {
		path = LogPath(dir)
	}
	if _, err := os.Stat(path); err != nil {
		return "", amerrors.New(amerrors.ErrCodeFileNotFound, "log file not found", err).
			WithDetail("path", path).
			WithSuggestion("Logs are written while 'amansearch serve' runs")
	}
	return path, nil
}
