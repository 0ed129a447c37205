// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package isolate

import (
	"fmt"
	"os"
)

// WorkLock is the non-Linux stub. Bundles are Linux AppImages, so work
// directories elsewhere are only used by tests and are not locked.
type WorkLock struct{}

// Lock creates the work directory and returns a no-op lock.
func (c *Context) Lock() (*WorkLock, error) {
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &WorkLock{}, nil
}

// Release is a no-op on non-Linux platforms.
func (l *WorkLock) Release() {}
