// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"fmt"
	"regexp"
	"slices"
)

// ExtraGroup names the group holding modules added with With.
const ExtraGroup = "extra"

var moduleNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

type (
	// Module is one importable name.
	Module struct {
		Name string
		// Major restricts the module to one interpreter major version; 0 means any.
		Major int
	}

	// Group is a presentation bucket of modules.
	Group struct {
		Name    string
		Modules []Module
	}

	// Catalogue is an ordered list of module groups.
	Catalogue []Group
)

// ValidName reports whether name is a dotted Python module name.
func ValidName(name string) bool {
	return moduleNamePattern.MatchString(name)
}

// AppliesTo reports whether the module exists for the given major version.
func (m Module) AppliesTo(major int) bool {
	return m.Major == 0 || m.Major == major
}

// For returns the module names to import for an interpreter major version,
// in catalogue order and without duplicates.
func (c Catalogue) For(major int) []string {
	var names []string
	seen := make(map[string]bool)
	for _, g := range c {
		for _, m := range g.Modules {
			if !m.AppliesTo(major) || seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			names = append(names, m.Name)
		}
	}
	return names
}

// With returns a copy of the catalogue with names appended to the extra group.
func (c Catalogue) With(names ...string) Catalogue {
	out := c.clone()
	if len(names) == 0 {
		return out
	}
	idx := slices.IndexFunc(out, func(g Group) bool { return g.Name == ExtraGroup })
	if idx == -1 {
		out = append(out, Group{Name: ExtraGroup})
		idx = len(out) - 1
	}
	for _, n := range names {
		out[idx].Modules = append(out[idx].Modules, Module{Name: n})
	}
	return out
}

// Without returns a copy of the catalogue without the named modules.
// Groups left empty are dropped.
func (c Catalogue) Without(names ...string) Catalogue {
	out := c.clone()
	if len(names) == 0 {
		return out
	}
	kept := out[:0]
	for _, g := range out {
		g.Modules = slices.DeleteFunc(g.Modules, func(m Module) bool { return slices.Contains(names, m.Name) })
		if len(g.Modules) > 0 {
			kept = append(kept, g)
		}
	}
	return kept
}

// Len returns the number of modules across all groups.
func (c Catalogue) Len() int {
	n := 0
	for _, g := range c {
		n += len(g.Modules)
	}
	return n
}

// Validate checks every module name.
func (c Catalogue) Validate() error {
	for _, g := range c {
		for _, m := range g.Modules {
			if !ValidName(m.Name) {
				return fmt.Errorf("%w: %q in group %s", ErrInvalidModuleName, m.Name, g.Name)
			}
			if m.Major < 0 {
				return fmt.Errorf("%w: %q has negative major version %d", ErrInvalidModuleName, m.Name, m.Major)
			}
		}
	}
	return nil
}

func (c Catalogue) clone() Catalogue {
	out := make(Catalogue, len(c))
	for i, g := range c {
		out[i] = Group{Name: g.Name, Modules: slices.Clone(g.Modules)}
	}
	return out
}

func anyMajor(names ...string) []Module {
	ms := make([]Module, len(names))
	for i, n := range names {
		ms[i] = Module{Name: n}
	}
	return ms
}

func only(major int, names ...string) []Module {
	ms := anyMajor(names...)
	for i := range ms {
		ms[i].Major = major
	}
	return ms
}

// Default returns the standard library catalogue. Modules that only exist
// under one major version are tagged with it.
func Default() Catalogue {
	return Catalogue{
		{Name: "text", Modules: anyMajor("string", "re", "difflib", "textwrap", "unicodedata", "stringprep", "readline", "rlcompleter")},
		{Name: "binary", Modules: anyMajor("struct", "codecs")},
		{Name: "data types", Modules: slices.Concat(
			anyMajor("datetime", "calendar", "collections", "heapq", "bisect", "array", "weakref", "copy", "pprint"),
			only(3, "enum", "types"),
		)},
		{Name: "numeric", Modules: slices.Concat(
			anyMajor("numbers", "math", "cmath", "decimal", "fractions", "random"),
			only(3, "statistics"),
		)},
		{Name: "functional", Modules: anyMajor("itertools", "functools", "operator")},
		{Name: "files", Modules: slices.Concat(
			anyMajor("os", "os.path", "glob", "fnmatch", "tempfile", "shutil", "stat", "filecmp", "linecache"),
			only(3, "pathlib"),
		)},
		{Name: "persistence", Modules: slices.Concat(
			anyMajor("pickle", "shelve", "marshal", "sqlite3"),
			only(2, "cPickle", "anydbm"),
			only(3, "dbm"),
		)},
		{Name: "compression", Modules: slices.Concat(
			anyMajor("zlib", "gzip", "bz2", "zipfile", "tarfile"),
			only(3, "lzma"),
		)},
		{Name: "file formats", Modules: slices.Concat(
			anyMajor("csv", "netrc", "plistlib"),
			only(2, "ConfigParser"),
			only(3, "configparser"),
		)},
		{Name: "cryptography", Modules: slices.Concat(
			anyMajor("hashlib", "hmac"),
			only(3, "secrets"),
		)},
		{Name: "os services", Modules: anyMajor("io", "time", "argparse", "optparse", "logging", "getpass", "curses", "platform", "errno", "ctypes")},
		{Name: "concurrency", Modules: slices.Concat(
			anyMajor("threading", "multiprocessing", "subprocess", "sched"),
			only(2, "Queue", "thread"),
			only(3, "queue", "_thread", "asyncio", "concurrent.futures"),
		)},
		{Name: "ipc", Modules: anyMajor("socket", "ssl", "select", "signal", "mmap")},
		{Name: "internet data", Modules: slices.Concat(
			anyMajor("email", "json", "mimetypes", "base64", "binascii", "uu"),
			only(3, "html"),
		)},
		{Name: "markup", Modules: anyMajor("xml.etree.ElementTree", "xml.dom.minidom", "xml.sax", "pyexpat")},
		{Name: "internet protocols", Modules: slices.Concat(
			anyMajor("urllib", "ftplib", "poplib", "imaplib", "smtplib", "uuid", "wsgiref"),
			only(2, "urllib2", "httplib", "urlparse"),
			only(3, "urllib.request", "http.client", "http.server", "xmlrpc.client"),
		)},
		{Name: "development", Modules: anyMajor("unittest", "doctest", "pydoc")},
		{Name: "runtime", Modules: slices.Concat(
			anyMajor("sys", "sysconfig", "warnings", "contextlib", "traceback", "gc", "inspect", "site", "ensurepip", "distutils"),
			only(3, "venv"),
		)},
	}
}
