// SPDX-License-Identifier: MPL-2.0

// Package cli contains CLI integration tests using testscript.
//
// The bundlecheck binary is run in-process through testscript.Main against
// fake bundles written into each script's work directory.
package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/niess/linuxdeploy-plugin-python/cmd/bundlecheck"
	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/testutil"
)

const testArch = "x86_64"

// testBundles are written into $WORK/bundles before each script runs.
var testBundles = []struct {
	tag     string
	version string
	opts    testutil.FakeBundleOptions
}{
	{tag: "python2", version: "2.7.16"},
	{tag: "python3", version: "3.7.3"},
	{tag: "broken", version: "3.8.0", opts: testutil.FakeBundleOptions{OmitAppDir: true}},
	{tag: "nosqlite", version: "3.7.3", opts: testutil.FakeBundleOptions{MissingModules: []string{"sqlite3"}}},
}

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"bundlecheck": cmd.Execute,
	})
}

// TestCLI runs all testscript tests in the testdata directory.
func TestCLI(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	testscript.Run(t, testscript.Params{
		Dir:   "testdata",
		Setup: commonSetup,
		// Continue running all tests even if one fails
		ContinueOnError: true,
	})
}

// commonSetup writes the fake bundles and a configuration file selecting
// them, and points the config directory into the script's work directory.
func commonSetup(env *testscript.Env) error {
	bundleDir := filepath.Join(env.WorkDir, "bundles")
	for _, b := range testBundles {
		opts := b.opts
		opts.Version = b.version
		if err := testutil.CreateFakeBundle(filepath.Join(bundleDir, bundle.FileName(b.tag, testArch)), opts); err != nil {
			return err
		}
	}

	cfg := fmt.Sprintf(`work_dir: %q
bundle_dir: %q
arch: %q
isolation: {
	home: %q
	force: true
}
bundles: [
	{tag: "python2", version: "2.7.16"},
	{tag: "python3", version: "3.7.3"},
	{tag: "broken", version: "3.8.0"},
	{tag: "nosqlite", version: "3.7.3"},
]
`, filepath.Join(env.WorkDir, "run"), bundleDir, testArch, filepath.Join(env.WorkDir, "home", "beta"))
	if err := os.WriteFile(filepath.Join(env.WorkDir, "config.cue"), []byte(cfg), 0o644); err != nil {
		return err
	}

	env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, "xdg"))
	env.Setenv("NO_COLOR", "1")
	return nil
}
