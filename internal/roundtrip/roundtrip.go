// SPDX-License-Identifier: MPL-2.0

// Package roundtrip checks that a package installed with an interpreter's pip
// gets an entry point bound to that same interpreter.
//
// The test package's entry point prints "running Python <X.Y.Z> from <path>".
// The line must match the expected interpreter path exactly, which is how a
// bundle proves that pip rewrote the entry point's interpreter line to the
// bundle (or the venv) rather than to a path inside the mounted image.
package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
	"github.com/niess/linuxdeploy-plugin-python/internal/venv"
)

// DefaultPackage is the test package installed by the round trip.
const DefaultPackage = "test-pip-install"

// ErrIdentityMismatch is the sentinel error wrapped by MismatchError.
var ErrIdentityMismatch = errors.New("entry point identity mismatch")

type (
	// Context describes one install, run and compare cycle.
	Context struct {
		// Name is the package, also the name of its entry point.
		Name string
		// Pip is the shell command prefix invoking pip (already quoted).
		Pip string
		// InstallFlags are extra arguments to pip install.
		InstallFlags []string
		// Activate is sourced before every pip and entry point command.
		Activate string
		// Interpreter is the path the entry point must report.
		Interpreter string
		// Version is the version the entry point must report.
		Version bundle.Version
		// Cleanup uninstalls the package after the entry point ran.
		Cleanup bool
		// OuterPip, when set, uninstalls the package without activation first.
		OuterPip string
	}

	// MismatchError reports an entry point bound to the wrong interpreter.
	MismatchError struct {
		Package  string
		Actual   string
		Expected string
	}
)

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("entry point of %s printed %q, expected %q", e.Package, e.Actual, e.Expected)
}

// Unwrap returns ErrIdentityMismatch for errors.Is() compatibility.
func (e *MismatchError) Unwrap() error { return ErrIdentityMismatch }

// Identity returns the line the test package prints when run by the
// interpreter at path.
func Identity(version bundle.Version, path string) string {
	return "running Python " + version.String() + " from " + path
}

// BaseContext returns the round trip for a bundle run directly: a user
// install with the bundle's own pip, reporting the bundle path as located.
func BaseContext(b bundle.Descriptor, pkg string) Context {
	if pkg == "" {
		pkg = DefaultPackage
	}
	return Context{
		Name:         pkg,
		Pip:          runtime.Join(b.Path, "-m", "pip"),
		InstallFlags: []string{"--user"},
		Interpreter:  b.Path,
		Version:      b.Version,
	}
}

// VenvContext returns the round trip inside the virtual environment d:
// the package is removed from outside the environment first, installed with
// the environment's pip, and uninstalled again once its entry point ran.
func VenvContext(d venv.Descriptor, version bundle.Version, pkg string) Context {
	if pkg == "" {
		pkg = DefaultPackage
	}
	pip := venv.PipName(version.Major)
	return Context{
		Name:        pkg,
		Pip:         pip,
		Activate:    d.Activate,
		Interpreter: d.Python,
		Version:     version,
		Cleanup:     true,
		OuterPip:    pip,
	}
}

// Expected returns the line the entry point must print.
func (c Context) Expected() string {
	return Identity(c.Version, c.Interpreter)
}

// Verify runs the round trip. Uninstalling before the install tolerates an
// absent package; every other step fails fast.
func Verify(ctx context.Context, s *runtime.Session, c Context) error {
	pkg := runtime.Quote(c.Name)
	var activated []runtime.CommandOption
	if c.Activate != "" {
		activated = append(activated, runtime.WithActivation(c.Activate))
	}

	if c.OuterPip != "" {
		if _, err := s.Run(ctx, c.OuterPip+" uninstall "+pkg+" -y", runtime.Tolerant()); err != nil {
			return err
		}
	}
	if _, err := s.Run(ctx, c.Pip+" uninstall "+pkg+" -y", append(activated, runtime.Tolerant())...); err != nil {
		return err
	}

	install := c.Pip + " install"
	if len(c.InstallFlags) > 0 {
		install += " " + runtime.Join(c.InstallFlags...)
	}
	if _, err := s.Run(ctx, install+" "+pkg, activated...); err != nil {
		return err
	}

	out, err := s.Run(ctx, pkg, activated...)
	if err != nil {
		return err
	}

	if c.Cleanup {
		if _, err := s.Run(ctx, c.Pip+" uninstall "+pkg+" -y", activated...); err != nil {
			return err
		}
	}

	got := strings.TrimSpace(out)
	slog.Debug("entry point identity", "package", c.Name, "output", got)
	if want := c.Expected(); got != want {
		return &MismatchError{Package: c.Name, Actual: got, Expected: want}
	}
	return nil
}
