// SPDX-License-Identifier: MPL-2.0

//go:build linux

package isolate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// WorkLock holds an exclusive flock on the work directory's lock file. Two
// runs sharing a work directory would remove each other's venv and records.
//
// The zero-byte lock file is harmless if orphaned; the kernel releases the
// flock when the fd is closed, including on crash.
type WorkLock struct {
	file *os.File
}

// Lock takes the work directory lock without blocking. It returns
// ErrWorkDirBusy when another run holds it.
func (c *Context) Lock() (*WorkLock, error) {
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return lockAt(filepath.Join(c.WorkDir, LockFileName))
}

func lockAt(path string) (*WorkLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrWorkDirBusy, filepath.Dir(path))
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &WorkLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *WorkLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
