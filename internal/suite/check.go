// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
)

const (
	// KindBase probes the bundle directly and round-trips a user install.
	KindBase Kind = "base"
	// KindVenv verifies a virtual environment created from the bundle.
	KindVenv Kind = "venv"
	// KindModules imports the standard library catalogue.
	KindModules Kind = "modules"
)

// ErrUnknownKind is returned by ParseKind for names that are not a Kind.
var ErrUnknownKind = errors.New("unknown check kind")

type (
	// Kind is the type of a check.
	Kind string

	// Check is one planned unit of work against one bundle.
	Check struct {
		// Name is "<tag>/<kind>".
		Name   string
		Kind   Kind
		Bundle bundle.Descriptor
	}

	// Filter selects checks. Empty fields match everything.
	Filter struct {
		Kinds []Kind
		Tags  []string
	}
)

// Kinds returns every kind, in the order checks run for a bundle.
func Kinds() []Kind {
	return []Kind{KindBase, KindVenv, KindModules}
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// ParseKind converts a name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("%w %q (valid: base, venv, modules)", ErrUnknownKind, s)
	}
	return k, nil
}

// CheckName returns the name of the check of kind k for the bundle tagged tag.
func CheckName(tag string, k Kind) string {
	return tag + "/" + string(k)
}

// Match reports whether c is selected by the filter.
func (f Filter) Match(c Check) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, c.Kind) {
		return false
	}
	if len(f.Tags) > 0 && !slices.Contains(f.Tags, c.Bundle.Tag) {
		return false
	}
	return true
}

// applies reports whether a check of kind k makes sense for b.
// The venv module only exists from Python 3 on.
func applies(k Kind, b bundle.Descriptor) bool {
	if k == KindVenv {
		return b.Version.Major >= 3
	}
	return true
}
