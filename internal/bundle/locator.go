// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
)

// ErrBundleNotFound is the sentinel error wrapped by NotFoundError.
var ErrBundleNotFound = errors.New("bundle not found")

type (
	// Descriptor identifies one unit under test. It is built once per run by
	// Locator.Locate and never mutated.
	Descriptor struct {
		// Tag is the bundle tag, e.g. "python3".
		Tag string
		// Path is the absolute bundle path as located (symlinks kept).
		Path string
		// Resolved is Path with symlinks evaluated.
		Resolved string
		// Version is the declared version.
		Version Version
	}

	// Locator finds pre-built bundles on disk. Bundles are never built or
	// downloaded.
	Locator struct {
		// Dir is the directory holding <tag>-<arch>.AppImage files.
		Dir string
		// Arch is the architecture tag used in file names.
		Arch string
	}

	// NotFoundError reports a bundle that is missing or not executable.
	NotFoundError struct {
		Tag    string
		Path   string
		Reason string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bundle %s not found at %s: %s", e.Tag, e.Path, e.Reason)
}

// Unwrap returns ErrBundleNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrBundleNotFound }

// FileName returns the conventional bundle file name, <tag>-<arch>.AppImage.
func FileName(tag, arch string) string {
	return tag + "-" + arch + ".AppImage"
}

// Path returns where the bundle for tag is expected.
func (l Locator) Path(tag string) string {
	return filepath.Join(l.Dir, FileName(tag, l.Arch))
}

// Locate resolves the declaration's version and bundle file into a Descriptor.
func (l Locator) Locate(d Declaration) (Descriptor, error) {
	version, err := d.ResolveVersion()
	if err != nil {
		return Descriptor{}, err
	}

	path := d.Path
	if path == "" {
		path = l.Path(d.Tag)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to make bundle path absolute: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, os.ErrNotExist) {
			reason = "no such file"
		}
		return Descriptor{}, &NotFoundError{Tag: d.Tag, Path: abs, Reason: reason}
	}
	if info.IsDir() {
		return Descriptor{}, &NotFoundError{Tag: d.Tag, Path: abs, Reason: "is a directory"}
	}
	if goruntime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return Descriptor{}, &NotFoundError{Tag: d.Tag, Path: abs, Reason: "not executable"}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to resolve bundle path: %w", err)
	}

	return Descriptor{Tag: d.Tag, Path: abs, Resolved: resolved, Version: version}, nil
}

// LocateAll locates every declaration, in order, stopping at the first error.
func (l Locator) LocateAll(decls []Declaration) ([]Descriptor, error) {
	descs := make([]Descriptor, 0, len(decls))
	for _, d := range decls {
		desc, err := l.Locate(d)
		if err != nil {
			return nil, err
		}
		descs = append(descs, desc)
	}
	return descs, nil
}
