package config

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.brezze.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".brezze")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// DBPath returns the history database path under the data dir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "brezze.db")
}

// LogPath returns the daemon log file path under the data dir.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "brezzed.log")
}

// ClientLogPath returns the line-client log file path.
func ClientLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "brezze.log")
}

// EnsureDataDir creates the data directory tree with owner-only permissions.
func EnsureDataDir(dataDir string) error {
	for _, d := range []string{dataDir, filepath.Join(dataDir, "logs")} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
