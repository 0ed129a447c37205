// SPDX-License-Identifier: MPL-2.0

package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrProbeOutput is the sentinel error wrapped by OutputError.
var ErrProbeOutput = errors.New("invalid probe output")

type (
	// Record is the runtime configuration an interpreter reports about itself.
	Record struct {
		// Schema is the probe script version that produced the record.
		Schema int `json:"schema,omitempty" yaml:"schema,omitempty" toml:"schema,omitempty"`
		// Path is the module search path, in precedence order.
		Path []string `json:"path" yaml:"path" toml:"path"`
		// Executable is the interpreter's own idea of its executable.
		Executable string `json:"executable" yaml:"executable" toml:"executable"`
		// Prefix is the installation root.
		Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
		User   string `json:"user" yaml:"user" toml:"user"`
		Home   string `json:"home" yaml:"home" toml:"home"`
		// Version holds at least major, minor and patch.
		Version []int `json:"version" yaml:"version" toml:"version"`
		// AppDir is the APPDIR variable set by the bundle launcher, empty when unset.
		AppDir string `json:"appdir" yaml:"appdir" toml:"appdir"`
	}

	// OutputError reports a probe record that is missing, unparsable or incomplete.
	OutputError struct {
		// File is the record file.
		File string
		// Reason describes what is wrong.
		Reason string
		// Err is the underlying error, if any.
		Err error
	}
)

// Error implements the error interface.
func (e *OutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe record %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe record %s: %s", e.File, e.Reason)
}

// Unwrap returns ErrProbeOutput and the cause for errors.Is/As.
func (e *OutputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProbeOutput, e.Err}
	}
	return []error{ErrProbeOutput}
}

// Decode parses a record file's content. JSON null for user or appdir
// decodes to the empty string.
func Decode(data []byte, file string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &OutputError{File: file, Reason: "not a valid record", Err: err}
	}
	if err := rec.Validate(); err != nil {
		return nil, &OutputError{File: file, Reason: "incomplete record", Err: err}
	}
	return &rec, nil
}

// Validate checks the fields every well-formed record carries.
func (r *Record) Validate() error {
	var problems []string
	if r.Schema != 0 && r.Schema != ScriptVersion {
		problems = append(problems, fmt.Sprintf("schema %d, want %d", r.Schema, ScriptVersion))
	}
	if len(r.Version) < 3 {
		problems = append(problems, fmt.Sprintf("version has %d component(s), want at least 3", len(r.Version)))
	}
	if len(r.Path) == 0 {
		problems = append(problems, "path is empty")
	}
	if !path.IsAbs(r.Executable) {
		problems = append(problems, fmt.Sprintf("executable %q is not absolute", r.Executable))
	}
	if !path.IsAbs(r.Prefix) {
		problems = append(problems, fmt.Sprintf("prefix %q is not absolute", r.Prefix))
	}
	if !path.IsAbs(r.Home) {
		problems = append(problems, fmt.Sprintf("home %q is not absolute", r.Home))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// MajorMinor returns "M.m" from the reported version.
func (r *Record) MajorMinor() string {
	if len(r.Version) < 2 {
		return ""
	}
	return fmt.Sprintf("%d.%d", r.Version[0], r.Version[1])
}

// SitePackages returns <prefix>/lib/python<M.m>/site-packages for the reported version.
func (r *Record) SitePackages(prefix string) string {
	return path.Join(prefix, "lib", "python"+r.MajorMinor(), "site-packages")
}

// UserSite returns the per-user site-packages directory under the reported home.
func (r *Record) UserSite() string {
	return path.Join(r.Home, ".local", "lib", "python"+r.MajorMinor(), "site-packages")
}

// LastPath returns the last search path entry, or "" when the path is empty.
func (r *Record) LastPath() string {
	if len(r.Path) == 0 {
		return ""
	}
	return r.Path[len(r.Path)-1]
}

// HasPath reports whether dir is one of the search path entries.
func (r *Record) HasPath(dir string) bool {
	for _, p := range r.Path {
		if path.Clean(p) == path.Clean(dir) {
			return true
		}
	}
	return false
}
