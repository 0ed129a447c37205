// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

//go:embed fakebundle.sh
var fakeBundleBody string

// FakeBundleOptions shapes the behavior of a fake bundle.
type FakeBundleOptions struct {
	// Version is the X.Y.Z version the bundle reports. Defaults to "3.7.3".
	Version string
	// MissingModules fail to import.
	MissingModules []string
	// ReportedPrefix replaces the prefix written by the probe.
	ReportedPrefix string
	// OmitAppDir makes the probe report an empty APPDIR.
	OmitAppDir bool
}

// FakeBundleAppDir returns the application directory a fake bundle at path reports.
func FakeBundleAppDir(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".AppDir")
}

// FakeBundleScript renders the bash script standing in for a bundle located at path.
//
// The script understands the invocations a bundle check makes: running a .py
// file (it writes a probe record to the second argument), -c 'import X',
// -m venv, -m ensurepip inside a venv, and -m pip install/uninstall.
// Packages installed through pip get an entry point printing the Python
// identity line.
func FakeBundleScript(path string, opts FakeBundleOptions) string {
	version := opts.Version
	if version == "" {
		version = "3.7.3"
	}
	appDir := FakeBundleAppDir(path)
	prefix := filepath.Join(appDir, "usr")
	reportedAppDir := appDir
	if opts.OmitAppDir {
		reportedAppDir = ""
	}

	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\n")
	fmt.Fprintf(&sb, "FAKE_MODE='base'\n")
	fmt.Fprintf(&sb, "FAKE_VERSION='%s'\n", version)
	fmt.Fprintf(&sb, "FAKE_PREFIX='%s'\n", prefix)
	fmt.Fprintf(&sb, "FAKE_REPORTED_PREFIX='%s'\n", opts.ReportedPrefix)
	fmt.Fprintf(&sb, "FAKE_APPDIR='%s'\n", reportedAppDir)
	fmt.Fprintf(&sb, "FAKE_EXE=''\n")
	fmt.Fprintf(&sb, "FAKE_SELF='%s'\n", path)
	fmt.Fprintf(&sb, "FAKE_MISSING='%s'\n", strings.Join(opts.MissingModules, " "))
	sb.WriteString(fakeBundleBody)
	return sb.String()
}

// CreateFakeBundle writes an executable fake bundle at path (which must be absolute).
func CreateFakeBundle(path string, opts FakeBundleOptions) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("fake bundle path must be absolute: %s", path)
	}
	return writeFile(path, []byte(FakeBundleScript(path, opts)), 0o755)
}

// WriteFakeBundle writes an executable fake bundle at path and returns path.
// The test is skipped when bash is unavailable.
func WriteFakeBundle(t testing.TB, path string, opts FakeBundleOptions) string {
	t.Helper()
	RequireBash(t)
	if err := CreateFakeBundle(path, opts); err != nil {
		t.Fatalf("failed to write fake bundle: %v", err)
	}
	return path
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	// WriteFile does not change the mode of an existing file.
	return os.Chmod(path, perm)
}
