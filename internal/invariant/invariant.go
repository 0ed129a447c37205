// SPDX-License-Identifier: MPL-2.0

// Package invariant decides whether a probe record describes a portable
// bundle behaving like a standard interpreter install.
//
// Clauses are evaluated in a fixed order and the first violation is the one
// reported by Check:
//
//  1. the reported version starts with the declared major.minor.patch
//  2. the executable is the expected interpreter path
//  3. base mode: the prefix is $APPDIR/usr (APPDIR must be set)
//  4. venv mode: the prefix is the virtual environment root
//  5. the last search path entry is <prefix>/lib/pythonM.m/site-packages
//  6. base mode: the user site-packages directory is on the search path
//  7. venv mode: the user site-packages directory is not on the search path
package invariant

import (
	"errors"
	"fmt"
	"path"
	"slices"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
)

const (
	// ModeBase checks a bundle run directly.
	ModeBase Mode = "base"
	// ModeVenv checks an interpreter inside a virtual environment made from a bundle.
	ModeVenv Mode = "venv"
)

// Invariant names, in evaluation order.
const (
	InvariantVersion        = "version"
	InvariantExecutable     = "executable"
	InvariantPrefix         = "prefix"
	InvariantSitePackages   = "site-packages"
	InvariantUserSite       = "user-site"
	InvariantUserSiteAbsent = "user-site-absent"
)

var (
	// ErrInvariantViolated is the sentinel error wrapped by ViolationError.
	ErrInvariantViolated = errors.New("invariant violated")
	// ErrInvalidMode is returned for an unknown Mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidExpectation is returned when an Expectation cannot be checked against.
	ErrInvalidExpectation = errors.New("invalid expectation")
)

type (
	// Mode selects which clauses apply.
	Mode string

	// Expectation is what a record must match.
	Expectation struct {
		Mode Mode
		// Version is the declared bundle version.
		Version bundle.Version
		// Executable is the interpreter path the record must report.
		Executable string
		// Root is the virtual environment directory (venv mode only).
		Root string
	}

	// Violation is one failed clause.
	Violation struct {
		Invariant string
		Field     string
		Actual    string
		Expected  string
	}

	// ViolationError reports the first failed clause of a check.
	ViolationError struct {
		Invariant string
		Mode      Mode
		Field     string
		Actual    string
		Expected  string
	}
)

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// IsValid returns whether the Mode is known, and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeBase, ModeVenv:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w %q (valid: base, venv)", ErrInvalidMode, string(m))}
	}
}

// Validate checks that the expectation can be evaluated.
func (e Expectation) Validate() error {
	if ok, errs := e.Mode.IsValid(); !ok {
		return errs[0]
	}
	if e.Version.IsZero() {
		return fmt.Errorf("%w: version is required", ErrInvalidExpectation)
	}
	if !path.IsAbs(e.Executable) {
		return fmt.Errorf("%w: executable %q must be absolute", ErrInvalidExpectation, e.Executable)
	}
	if e.Mode == ModeVenv && !path.IsAbs(e.Root) {
		return fmt.Errorf("%w: venv root %q must be absolute", ErrInvalidExpectation, e.Root)
	}
	return nil
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s invariant %q violated: %s is %q, expected %s", e.Mode, e.Invariant, e.Field, e.Actual, e.Expected)
}

// Unwrap returns ErrInvariantViolated for errors.Is() compatibility.
func (e *ViolationError) Unwrap() error { return ErrInvariantViolated }

// Check returns the first violated clause as a *ViolationError, or nil.
func Check(rec *probe.Record, exp Expectation) error {
	if err := exp.Validate(); err != nil {
		return err
	}
	vs := Violations(rec, exp)
	if len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &ViolationError{Invariant: v.Invariant, Mode: exp.Mode, Field: v.Field, Actual: v.Actual, Expected: v.Expected}
}

// Violations evaluates every clause and returns the failures in clause order.
func Violations(rec *probe.Record, exp Expectation) []*Violation {
	var vs []*Violation
	add := func(invariant, field, actual, expected string) {
		vs = append(vs, &Violation{Invariant: invariant, Field: field, Actual: actual, Expected: expected})
	}

	want := exp.Version.Ints()
	got := rec.Version
	if len(got) > len(want) {
		got = got[:len(want)]
	}
	if !slices.Equal(got, want) {
		add(InvariantVersion, "version", fmt.Sprint(got), quote(exp.Version.String()))
	}

	if !samePath(rec.Executable, exp.Executable) {
		add(InvariantExecutable, "executable", rec.Executable, quote(exp.Executable))
	}

	var prefix string
	switch exp.Mode {
	case ModeBase:
		if rec.AppDir == "" {
			add(InvariantPrefix, "appdir", "", "APPDIR to be set by the bundle launcher")
		} else {
			prefix = path.Join(rec.AppDir, "usr")
			if !samePath(rec.Prefix, prefix) {
				add(InvariantPrefix, "prefix", rec.Prefix, quote(prefix))
			}
		}
	case ModeVenv:
		prefix = path.Clean(exp.Root)
		if !samePath(rec.Prefix, prefix) {
			add(InvariantPrefix, "prefix", rec.Prefix, quote(prefix))
		}
	}

	if prefix != "" {
		site := path.Join(prefix, "lib", "python"+exp.Version.MajorMinor(), "site-packages")
		if !samePath(rec.LastPath(), site) {
			add(InvariantSitePackages, "path[-1]", rec.LastPath(), quote(site))
		}
	}

	// A relative home yields a relative user site that no sys.path entry can
	// match, so both user-site clauses fail on it instead of passing vacuously.
	if !path.IsAbs(rec.Home) {
		clause := InvariantUserSite
		if exp.Mode == ModeVenv {
			clause = InvariantUserSiteAbsent
		}
		add(clause, "home", rec.Home, "an absolute home directory")
		return vs
	}
	userSite := path.Join(rec.Home, ".local", "lib", "python"+exp.Version.MajorMinor(), "site-packages")
	switch exp.Mode {
	case ModeBase:
		if !rec.HasPath(userSite) {
			add(InvariantUserSite, "path", fmt.Sprint(rec.Path), "to contain "+quote(userSite))
		}
	case ModeVenv:
		if rec.HasPath(userSite) {
			add(InvariantUserSiteAbsent, "path", fmt.Sprint(rec.Path), "not to contain "+quote(userSite))
		}
	}

	return vs
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return path.Clean(a) == path.Clean(b)
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}
