// Package lock provides the advisory single-instance lock: a pid file
// keyed by a well-known name, with a liveness check so a lock left by
// a dead process never wedges the next startup.
package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning means a live process holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock is a pid-file based mutual exclusion handle.
type Lock struct {
	path     string
	acquired bool
}

// New creates a lock rooted in dir, named after the application.
func New(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &Lock{path: filepath.Join(dir, name+".pid")}, nil
}

// Acquire takes the lock. A stale file (dead process or unreadable
// pid) is recovered; a live holder yields ErrAlreadyRunning.
func (l *Lock) Acquire() error {
	pid, err := l.read()
	if err != nil {
		return err
	}

	if pid != 0 {
		if isRunning(pid) {
			return ErrAlreadyRunning
		}
		slog.Warn("removing stale instance lock", "path", l.path, "pid", pid)
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	l.acquired = true
	return nil
}

// Release drops the lock on clean shutdown. Releasing a lock that was
// never acquired is a no-op.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// read returns the recorded pid, 0 when the file is absent or holds
// garbage (garbage counts as stale).
func (l *Lock) read() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		slog.Warn("invalid pid in instance lock, treating as stale", "path", l.path)
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("failed to remove invalid lock: %w", err)
		}
		return 0, nil
	}

	return pid, nil
}

// isRunning checks process liveness with signal 0.
func isRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
