// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

type (
	// Workspace is the directory in which a Session's commands run. Transient
	// files (probe script, probe record) and virtual environments live here.
	// Names are relative to Dir unless absolute.
	Workspace interface {
		// Dir returns the absolute path of the workspace directory.
		Dir() string
		// WriteFile creates or truncates name with data.
		WriteFile(ctx context.Context, name string, data []byte) error
		// ReadFile returns the content of name.
		ReadFile(ctx context.Context, name string) ([]byte, error)
		// RemoveAll removes name and any children. A missing name is not an error.
		RemoveAll(ctx context.Context, name string) error
		// Exists reports whether name exists.
		Exists(ctx context.Context, name string) (bool, error)
	}

	// LocalWorkspace is a Workspace backed by a directory on the host.
	LocalWorkspace struct {
		dir string
	}
)

// NewLocalWorkspace returns a workspace rooted at dir, creating it if needed.
func NewLocalWorkspace(dir string) (*LocalWorkspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	return &LocalWorkspace{dir: abs}, nil
}

// Dir returns the absolute workspace directory.
func (w *LocalWorkspace) Dir() string { return w.dir }

// Path returns the absolute path of name inside the workspace.
func (w *LocalWorkspace) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.dir, name)
}

// WriteFile creates or truncates name with data.
func (w *LocalWorkspace) WriteFile(_ context.Context, name string, data []byte) error {
	return os.WriteFile(w.Path(name), data, 0o644)
}

// ReadFile returns the content of name.
func (w *LocalWorkspace) ReadFile(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(w.Path(name))
}

// RemoveAll removes name and any children.
func (w *LocalWorkspace) RemoveAll(_ context.Context, name string) error {
	return os.RemoveAll(w.Path(name))
}

// Exists reports whether name exists.
func (w *LocalWorkspace) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(w.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
