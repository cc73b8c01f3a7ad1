package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// ErrLocked is returned by AcquireLock when another live process already
// holds the lock file.
var ErrLocked = errors.New("storage: storage directory is locked by another process")

// Lock is an advisory exclusive lock file held for a process's lifetime,
// grounded on core/StarLockFile.hpp: a sentinel file next to the data
// directory that a second server process refuses to open concurrently.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock creates (or takes over) the lock file at
// filepath.Join(dir, "universe.lock"). It fails with ErrLocked if the file
// exists, is non-empty, and names a pid that is still alive.
func AcquireLock(dir string) (*Lock, error) {
	path := filepath.Join(dir, "universe.lock")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create storage dir: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		if pid, perr := strconv.Atoi(string(data)); perr == nil && processAlive(pid) {
			return nil, ErrLocked
		}
		// Stale lock file (process is gone, or contents unreadable): remove
		// it and proceed to acquire fresh.
		_ = os.Remove(path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("storage: create lock file: %w", err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("storage: write lock file: %w", err)
	}
	return &Lock{path: path, file: f}, nil
}

// Release closes and removes the lock file. Safe to call once; a second
// call is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if rerr := os.Remove(l.path); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; Signal(0) probes liveness
	// without actually sending a signal.
	return proc.Signal(syscall.Signal(0)) == nil
}
