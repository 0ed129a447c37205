// SPDX-License-Identifier: MPL-2.0

//go:build linux

package isolate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func lockContext(t *testing.T) *Context {
	t.Helper()
	return &Context{WorkDir: filepath.Join(t.TempDir(), "work")}
}

func TestLock_CreatesWorkDirAndFile(t *testing.T) {
	t.Parallel()

	c := lockContext(t)
	lock, err := c.Lock()
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(filepath.Join(c.WorkDir, LockFileName)); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestLock_Busy(t *testing.T) {
	t.Parallel()

	c := lockContext(t)
	first, err := c.Lock()
	if err != nil {
		t.Fatalf("Lock() error: %v", err)
	}

	if _, err := c.Lock(); !errors.Is(err, ErrWorkDirBusy) {
		t.Fatalf("second Lock() = %v, want ErrWorkDirBusy", err)
	}

	first.Release()
	second, err := c.Lock()
	if err != nil {
		t.Fatalf("Lock() after release: %v", err)
	}
	second.Release()
}

func TestWorkLock_Release_Idempotent(t *testing.T) {
	t.Parallel()

	lock, err := lockContext(t).Lock()
	if err != nil {
		t.Fatal(err)
	}
	lock.Release()
	lock.Release()

	var nilLock *WorkLock
	nilLock.Release()
}
