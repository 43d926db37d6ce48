package session

import (
	"os"
	"path/filepath"
)

// BaseDir returns the duo home, ~/.duo unless DUO_HOME is set.
func BaseDir() string {
	if dir := os.Getenv("DUO_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".duo")
}

// Dir returns the identity-specific directory.
func Dir(identity string) string {
	return filepath.Join(BaseDir(), "identities", identity)
}

// LockPath returns the lock file path for an identity.
func LockPath(identity string) string {
	return filepath.Join(Dir(identity), "LOCK")
}

// JournalPath returns the outbox journal database path.
func JournalPath(identity string) string {
	return filepath.Join(Dir(identity), "journal.db")
}

// LogDir returns the log directory for an identity.
func LogDir(identity string) string {
	return filepath.Join(Dir(identity), "logs")
}

// LogPath returns the client log file path.
func LogPath(identity string) string {
	return filepath.Join(LogDir(identity), "duo.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the identity directory tree with proper permissions.
func EnsureDir(identity string) error {
	dirs := []string{
		Dir(identity),
		LogDir(identity),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
