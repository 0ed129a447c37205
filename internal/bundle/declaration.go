// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// VersionVariable is the shell variable a declaration file must assign.
const VersionVariable = "PYTHON_VERSION"

var (
	// ErrVersionNotFound is returned when a declaration assigns no literal PYTHON_VERSION.
	ErrVersionNotFound = errors.New("version not found")
	// ErrDeclarationSyntax is returned when a declaration file is not valid shell.
	ErrDeclarationSyntax = errors.New("declaration is not valid shell")
)

type (
	// Declaration is the configured identity of one bundle under test.
	Declaration struct {
		// Tag names the bundle, e.g. "python3".
		Tag string
		// Version is the inline X.Y.Z version; when empty it is read from Source.
		Version string
		// Source is a shell file exporting PYTHON_VERSION.
		Source string
		// Path overrides the located bundle path.
		Path string
	}

	// DeclarationError reports a declaration that does not yield a version.
	DeclarationError struct {
		// Source names the declaration (file path or tag).
		Source string
		// Err is ErrVersionNotFound, ErrDeclarationSyntax or an *InvalidVersionError.
		Err error
	}
)

// Error implements the error interface.
func (e *DeclarationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeclarationError) Unwrap() error { return e.Err }

// ParseDeclaration reads shell source and returns the version assigned to
// PYTHON_VERSION, either exported (export PYTHON_VERSION="3.7.3") or as a
// plain assignment. Quoting is stripped. The last assignment wins, as it
// would when the file is sourced. Values built from expansions are ignored.
func ParseDeclaration(r io.Reader, name string) (Version, error) {
	f, err := syntax.NewParser().Parse(r, name)
	if err != nil {
		return Version{}, &DeclarationError{Source: name, Err: fmt.Errorf("%w: %w", ErrDeclarationSyntax, err)}
	}

	value, found := "", false
	syntax.Walk(f, func(node syntax.Node) bool {
		var assigns []*syntax.Assign
		switch n := node.(type) {
		case *syntax.DeclClause:
			if n.Variant != nil && n.Variant.Value == "export" {
				assigns = n.Args
			}
		case *syntax.CallExpr:
			if len(n.Args) == 0 {
				assigns = n.Assigns
			}
		}
		for _, a := range assigns {
			if a.Name == nil || a.Name.Value != VersionVariable || a.Value == nil {
				continue
			}
			if lit, ok := literalWord(a.Value); ok {
				value, found = lit, true
			}
		}
		return true
	})

	if !found {
		return Version{}, &DeclarationError{Source: name, Err: ErrVersionNotFound}
	}
	v, err := ParseVersion(strings.TrimSpace(value))
	if err != nil {
		return Version{}, &DeclarationError{Source: name, Err: err}
	}
	return v, nil
}

// LoadDeclaration parses the declaration file at path.
func LoadDeclaration(path string) (Version, error) {
	f, err := os.Open(path)
	if err != nil {
		return Version{}, fmt.Errorf("failed to open declaration: %w", err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical
	return ParseDeclaration(f, path)
}

// ResolveVersion returns the declared version, reading Source when no inline
// version is given.
func (d Declaration) ResolveVersion() (Version, error) {
	if d.Version != "" {
		v, err := ParseVersion(d.Version)
		if err != nil {
			return Version{}, &DeclarationError{Source: d.Tag, Err: err}
		}
		return v, nil
	}
	if d.Source == "" {
		return Version{}, &DeclarationError{Source: d.Tag, Err: ErrVersionNotFound}
	}
	return LoadDeclaration(d.Source)
}

// literalWord returns the value of a word made only of literal and quoted
// literal parts.
func literalWord(w *syntax.Word) (string, bool) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(lit.Value)
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}
