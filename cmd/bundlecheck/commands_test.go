// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/config"
	"github.com/niess/linuxdeploy-plugin-python/internal/isolate"
	"github.com/niess/linuxdeploy-plugin-python/internal/testutil"
)

type cliFixture struct {
	workDir   string
	bundleDir string
	home      string
	cfgPath   string
}

// newCLIFixture writes a configuration pointing at temporary work and bundle
// directories with python2 and python3 declared.
func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{
		workDir:   t.TempDir(),
		bundleDir: t.TempDir(),
		home:      filepath.Join(t.TempDir(), "beta"),
	}
	f.cfgPath = filepath.Join(t.TempDir(), "config.cue")
	cue := fmt.Sprintf(`work_dir: %q
bundle_dir: %q
arch: "x86_64"
isolation: {
	home: %q
	force: true
}
bundles: [
	{tag: "python2", version: "2.7.16"},
	{tag: "python3", version: "3.7.3"},
]
ui: color_scheme: "dark"
`, f.workDir, f.bundleDir, f.home)
	testutil.MustWriteFile(t, f.cfgPath, []byte(cue), 0o644)
	return f
}

func (f *cliFixture) bundle(t *testing.T, tag, version string, opts testutil.FakeBundleOptions) string {
	t.Helper()
	opts.Version = version
	return testutil.WriteFakeBundle(t, filepath.Join(f.bundleDir, bundle.FileName(tag, "x86_64")), opts)
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatal(err)
	}
	root := NewRootCommand(app)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return int(exitErr.Code)
}

func TestDeclarationCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "python3.sh")
	testutil.MustWriteFile(t, good, []byte("# python3\nexport PYTHON_VERSION=\"3.8.1\"\n"), 0o644)
	bad := filepath.Join(dir, "broken.sh")
	testutil.MustWriteFile(t, bad, []byte("export OTHER=1\n"), 0o644)

	res := runCLI(t, "declaration", good)
	if res.err != nil {
		t.Fatalf("declaration failed: %v\n%s", res.err, res.stderr)
	}
	if strings.TrimSpace(res.stdout) != "3.8.1" {
		t.Errorf("stdout = %q, want 3.8.1", res.stdout)
	}

	res = runCLI(t, "declaration", bad)
	if code := exitCode(t, res.err); code != int(ExitSetupFailed) {
		t.Errorf("exit code = %d, want %d", code, ExitSetupFailed)
	}
	if !strings.Contains(res.stderr, "--verbose") {
		t.Errorf("expected troubleshooting hint, got %q", res.stderr)
	}
}

func TestModulesCommand(t *testing.T) {
	f := newCLIFixture(t)

	res := runCLI(t, "--config", f.cfgPath, "modules", "--major", "3")
	if res.err != nil {
		t.Fatalf("modules failed: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "venv") || !strings.Contains(res.stdout, "modules") {
		t.Errorf("unexpected output:\n%s", res.stdout)
	}

	res = runCLI(t, "--config", f.cfgPath, "modules", "--major", "2")
	if res.err != nil {
		t.Fatal(res.err)
	}
	for _, line := range strings.Fields(res.stdout) {
		if line == "venv" {
			t.Errorf("venv listed for Python 2:\n%s", res.stdout)
		}
	}
}

func TestPlanCommand(t *testing.T) {
	f := newCLIFixture(t)

	res := runCLI(t, "--config", f.cfgPath, "plan")
	if res.err != nil {
		t.Fatalf("plan failed: %v\n%s", res.err, res.stderr)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	want := []string{"python2/base", "python2/modules", "python3/base", "python3/venv", "python3/modules"}
	if len(lines) != len(want) {
		t.Fatalf("plan printed %d lines, want %d:\n%s", len(lines), len(want), res.stdout)
	}
	for i, name := range want {
		if !strings.HasPrefix(lines[i], name+" ") {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], name)
		}
	}
	if !strings.Contains(lines[0], "2.7.16") || !strings.Contains(lines[0], filepath.Join(f.bundleDir, "python2-x86_64.AppImage")) {
		t.Errorf("line 0 lacks version or path: %q", lines[0])
	}

	res = runCLI(t, "--config", f.cfgPath, "plan", "venv", "-b", "python2")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.stdout, "no checks selected") {
		t.Errorf("stdout = %q", res.stdout)
	}
}

func TestPlanCommand_Errors(t *testing.T) {
	f := newCLIFixture(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown kind", []string{"plan", "docker"}, "docker"},
		{"unknown bundle", []string{"plan", "-b", "python4"}, "python4"},
		{"bad runtime", []string{"plan", "--runtime", "docker"}, "docker"},
		{"missing config", []string{"plan"}, "config file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := f.cfgPath
			if tt.name == "missing config" {
				cfgPath = filepath.Join(t.TempDir(), "nope.cue")
			}
			res := runCLI(t, append([]string{"--config", cfgPath}, tt.args...)...)
			if code := exitCode(t, res.err); code != int(ExitSetupFailed) {
				t.Errorf("exit code = %d, want %d", code, ExitSetupFailed)
			}
			if !strings.Contains(res.stderr, tt.msg) {
				t.Errorf("stderr does not mention %q:\n%s", tt.msg, res.stderr)
			}
		})
	}
}

func TestProbeCommand(t *testing.T) {
	f := newCLIFixture(t)
	path := f.bundle(t, "python3", "3.7.3", testutil.FakeBundleOptions{})

	res := runCLI(t, "--config", f.cfgPath, "probe", path)
	if res.err != nil {
		t.Fatalf("probe failed: %v\n%s", res.err, res.stderr)
	}
	for _, want := range []string{`"executable"`, `"appdir"`, f.home} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("json record lacks %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, "--config", f.cfgPath, "probe", path, "--format", "yaml")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.stdout, "executable: ") {
		t.Errorf("yaml record expected:\n%s", res.stdout)
	}

	res = runCLI(t, "--config", f.cfgPath, "probe", path, "--format", "xml")
	if code := exitCode(t, res.err); code != int(ExitSetupFailed) {
		t.Errorf("exit code = %d, want %d", code, ExitSetupFailed)
	}
}

func TestCheckCommand_Passes(t *testing.T) {
	f := newCLIFixture(t)
	f.bundle(t, "python2", "2.7.16", testutil.FakeBundleOptions{})
	f.bundle(t, "python3", "3.7.3", testutil.FakeBundleOptions{})

	res := runCLI(t, "--config", f.cfgPath, "check")
	if res.err != nil {
		t.Fatalf("check failed: %v\nstdout:\n%s\nstderr:\n%s", res.err, res.stdout, res.stderr)
	}
	for _, name := range []string{"python2/base", "python2/modules", "python3/base", "python3/venv", "python3/modules"} {
		if !strings.Contains(res.stdout, name) {
			t.Errorf("check %s not reported:\n%s", name, res.stdout)
		}
	}
	if !strings.Contains(res.stdout, "5 passed, 0 failed, 0 skipped") {
		t.Errorf("unexpected summary:\n%s", res.stdout)
	}
	if _, err := os.Stat(filepath.Join(f.workDir, config.DefaultVenvDir)); err != nil {
		t.Errorf("venv not created in work dir: %v", err)
	}
}

func TestCheckCommand_FailureExitCode(t *testing.T) {
	f := newCLIFixture(t)
	f.bundle(t, "python3", "3.7.3", testutil.FakeBundleOptions{MissingModules: []string{"sqlite3"}})

	res := runCLI(t, "--config", f.cfgPath, "check", "modules", "-b", "python3")
	if code := exitCode(t, res.err); code != int(ExitCheckFailed) {
		t.Fatalf("exit code = %d, want %d\n%s", code, ExitCheckFailed, res.stderr)
	}
	if !strings.Contains(res.stderr, "sqlite3") {
		t.Errorf("stderr does not name the module:\n%s", res.stderr)
	}
	if !strings.Contains(res.stdout, "0 passed, 1 failed") {
		t.Errorf("unexpected summary:\n%s", res.stdout)
	}
}

func TestCheckCommand_MissingBundle(t *testing.T) {
	f := newCLIFixture(t)

	res := runCLI(t, "--config", f.cfgPath, "check", "-b", "python3")
	if code := exitCode(t, res.err); code != int(ExitSetupFailed) {
		t.Fatalf("exit code = %d, want %d", code, ExitSetupFailed)
	}
	if !strings.Contains(res.stderr, "python3-x86_64.AppImage") {
		t.Errorf("stderr does not name the bundle path:\n%s", res.stderr)
	}
}

func TestCheckCommand_WorkDirBusy(t *testing.T) {
	if goruntime.GOOS != "linux" {
		t.Skip("work directory locks are Linux-only")
	}
	f := newCLIFixture(t)
	f.bundle(t, "python3", "3.7.3", testutil.FakeBundleOptions{})

	held, err := (&isolate.Context{WorkDir: f.workDir}).Lock()
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	res := runCLI(t, "--config", f.cfgPath, "check", "-b", "python3")
	if code := exitCode(t, res.err); code != int(ExitSetupFailed) {
		t.Fatalf("exit code = %d, want %d", code, ExitSetupFailed)
	}
	if !strings.Contains(res.stderr, isolate.ErrWorkDirBusy.Error()) {
		t.Errorf("stderr does not report the busy work directory:\n%s", res.stderr)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	config.SetConfigDirOverride(dir)
	defer config.Reset()

	res := runCLI(t, "config", "path")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.stdout, filepath.Join(dir, "config.cue")) {
		t.Errorf("config path output:\n%s", res.stdout)
	}

	res = runCLI(t, "config", "init")
	if res.err != nil {
		t.Fatal(res.err)
	}
	if !strings.Contains(res.stdout, "Created default configuration") {
		t.Errorf("init output: %q", res.stdout)
	}
	res = runCLI(t, "config", "init")
	if !strings.Contains(res.stdout, "already exists") {
		t.Errorf("second init output: %q", res.stdout)
	}

	res = runCLI(t, "config", "show")
	if res.err != nil {
		t.Fatalf("config show failed: %v\n%s", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, `test_package:`) || !strings.Contains(res.stdout, `tag: "python3"`) {
		t.Errorf("config show output:\n%s", res.stdout)
	}
	if !strings.Contains(res.stderr, filepath.Join(dir, "config.cue")) {
		t.Errorf("config show should name the loaded file:\n%s", res.stderr)
	}
}
