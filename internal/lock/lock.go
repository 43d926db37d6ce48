package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// HeldError is returned when another duo process already runs for the identity.
// One process per identity keeps the server down to one live connection per identity.
type HeldError struct {
	Identity string
	PID      int
	Path     string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("identity %q is in use by PID %d (%s)", e.Identity, e.PID, e.Path)
}

// Lock represents an acquired identity lock file.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock on dir for identity.
// Returns *HeldError if another process already holds it.
func Acquire(dir, identity string) (*Lock, error) {
	lockPath := filepath.Join(dir, "LOCK")

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		_ = f.Close()
		return nil, &HeldError{Identity: identity, PID: parsePID(string(data)), Path: lockPath}
	}

	if err := writeOwner(f, identity); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Lock{file: f, path: lockPath}, nil
}

func writeOwner(f *os.File, identity string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\nidentity=%s\ntime=%s\n", os.Getpid(), identity, time.Now().UTC().Format(time.RFC3339))
	_, err := f.WriteString(content)
	return err
}

// Release releases the lock. Safe to call on nil receiver and more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

func parsePID(content string) int {
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, "pid="); ok {
			pid, _ := strconv.Atoi(after)
			return pid
		}
	}
	return 0
}
