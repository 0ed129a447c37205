// SPDX-License-Identifier: MPL-2.0

// Package isolate builds the identity and environment in which bundle checks
// run. The result is an explicit Context value handed to every check; the
// process environment is never mutated.
package isolate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
)

const (
	// DefaultUser is adopted when the invoking user is unset or root.
	DefaultUser = "beta"
	// DefaultHome is the home directory of DefaultUser.
	DefaultHome = "/tmp/home/beta"
	// LockFileName is the lock file taken in the work directory for a run.
	LockFileName = ".bundlecheck.lock"
)

var (
	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("invalid isolation options")
	// ErrWorkDirBusy is returned by Lock when another run uses the work directory.
	ErrWorkDirBusy = errors.New("work directory is in use by another run")
)

type (
	// Options configures New.
	Options struct {
		// WorkDir is where checks run. Required.
		WorkDir string
		// User and Home form the identity adopted when isolation applies.
		// They default to DefaultUser and DefaultHome.
		User string
		Home string
		// Force adopts the isolation identity even for a regular user.
		Force bool
		// Arch overrides the ARCH variable and the host architecture.
		Arch string
		// EnvFiles are dotenv files whose variables are added to the environment.
		// Relative paths are resolved against EnvBaseDir (default: current directory).
		// A trailing '?' marks a file as optional.
		EnvFiles   []string
		EnvBaseDir string
		// Environ is the invoking environment. Nil means os.Environ().
		Environ []string
	}

	// Context is the isolated environment shared by the checks of one run.
	Context struct {
		// WorkDir is the absolute work directory.
		WorkDir string
		// User and Home are the identity the checks run as.
		User string
		Home string
		// Arch is the bundle architecture tag.
		Arch string
		// Isolated reports whether the isolation identity was adopted.
		Isolated bool

		base  []string
		path  string
		extra map[string]string
	}
)

// New derives the isolation context from opts.
//
// When the invoking USER is empty or root (or Force is set), checks run as
// opts.User with home opts.Home, and <home>/.local/bin is prepended to PATH so
// that entry points installed with pip --user are found. Otherwise the real
// identity is kept.
func New(opts Options) (*Context, error) {
	if opts.WorkDir == "" {
		return nil, fmt.Errorf("%w: work directory is required", ErrInvalidOptions)
	}
	workDir, err := filepath.Abs(opts.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	c := &Context{
		WorkDir: workDir,
		base:    slices.Clone(environ),
		extra:   make(map[string]string),
	}
	c.User, _ = runtime.LookupEnv(environ, "USER")
	c.Home, _ = runtime.LookupEnv(environ, "HOME")
	c.path, _ = runtime.LookupEnv(environ, "PATH")

	if c.User == "" || c.User == "root" || opts.Force {
		c.Isolated = true
		c.User = opts.User
		if c.User == "" {
			c.User = DefaultUser
		}
		c.Home = opts.Home
		if c.Home == "" {
			c.Home = filepath.Join(filepath.Dir(DefaultHome), c.User)
		}
		if !filepath.IsAbs(c.Home) {
			return nil, fmt.Errorf("%w: home %q must be absolute", ErrInvalidOptions, c.Home)
		}
		c.path = prependPath(c.UserBin(), c.path)
	}

	c.Arch = opts.Arch
	if c.Arch == "" {
		c.Arch, _ = runtime.LookupEnv(environ, "ARCH")
	}
	if c.Arch == "" {
		c.Arch = HostArch()
	}

	for _, f := range opts.EnvFiles {
		if err := loadEnvFile(c.extra, f, opts.EnvBaseDir); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	slog.Debug("isolation context",
		"user", c.User, "home", c.Home, "isolated", c.Isolated, "arch", c.Arch, "work_dir", c.WorkDir)
	return c, nil
}

// Prepare creates the work directory and, for each version, the user
// site-packages directory under the home directory.
func (c *Context) Prepare(versions ...bundle.Version) error {
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	if !c.Isolated {
		return nil
	}
	if err := os.MkdirAll(c.UserBin(), 0o755); err != nil {
		return fmt.Errorf("failed to create user bin directory: %w", err)
	}
	for _, v := range versions {
		if err := os.MkdirAll(c.UserSite(v), 0o755); err != nil {
			return fmt.Errorf("failed to create user site for python %s: %w", v.MajorMinor(), err)
		}
	}
	return nil
}

// Environ overlays the isolated HOME, USER, PATH, ARCH and the dotenv
// variables on base, which defaults to the invoking environment when nil.
func (c *Context) Environ(base []string) []string {
	if base == nil {
		base = c.base
	}
	overlay := make(map[string]string, len(c.extra)+4)
	for k, v := range c.extra {
		overlay[k] = v
	}
	overlay["HOME"] = c.Home
	overlay["USER"] = c.User
	overlay["ARCH"] = c.Arch
	if c.path != "" {
		overlay["PATH"] = c.path
	}
	return runtime.MergeEnv(base, overlay)
}

// UserBin returns <home>/.local/bin.
func (c *Context) UserBin() string {
	return filepath.Join(c.Home, ".local", "bin")
}

// UserSite returns <home>/.local/lib/python<M.m>/site-packages.
func (c *Context) UserSite(v bundle.Version) string {
	return filepath.Join(c.Home, ".local", "lib", "python"+v.MajorMinor(), "site-packages")
}

// HostArch maps the Go architecture to the tag used in AppImage file names.
func HostArch() string {
	switch goruntime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	case "arm":
		return "armhf"
	default:
		return goruntime.GOARCH
	}
}

func prependPath(dir, path string) string {
	if path == "" {
		return dir
	}
	for _, p := range strings.Split(path, string(os.PathListSeparator)) {
		if p == dir {
			return path
		}
	}
	return dir + string(os.PathListSeparator) + path
}
