// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func runFake(t *testing.T, dir, home string, name string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+home, "USER=beta")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestFakeBundle_Probe(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	bundle := WriteFakeBundle(t, filepath.Join(dir, "python3-x86_64.AppImage"), FakeBundleOptions{Version: "3.7.3"})

	if out, err := runFake(t, dir, home, bundle, "probe.py", "record.json"); err != nil {
		t.Fatalf("probe failed: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "record.json"))
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	var rec struct {
		Path       []string `json:"path"`
		Executable string   `json:"executable"`
		Prefix     string   `json:"prefix"`
		User       string   `json:"user"`
		Version    []int    `json:"version"`
		AppDir     string   `json:"appdir"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("record is not JSON: %v\n%s", err, data)
	}

	appDir := FakeBundleAppDir(bundle)
	if rec.Prefix != filepath.Join(appDir, "usr") {
		t.Errorf("prefix = %q, want %q", rec.Prefix, filepath.Join(appDir, "usr"))
	}
	if rec.AppDir != appDir {
		t.Errorf("appdir = %q, want %q", rec.AppDir, appDir)
	}
	if rec.User != "beta" {
		t.Errorf("user = %q, want beta", rec.User)
	}
	if len(rec.Version) != 3 || rec.Version[0] != 3 || rec.Version[1] != 7 || rec.Version[2] != 3 {
		t.Errorf("version = %v, want [3 7 3]", rec.Version)
	}
	wantSite := filepath.Join(appDir, "usr", "lib", "python3.7", "site-packages")
	if rec.Path[len(rec.Path)-1] != wantSite {
		t.Errorf("last path entry = %q, want %q", rec.Path[len(rec.Path)-1], wantSite)
	}
}

func TestFakeBundle_MissingModule(t *testing.T) {
	dir := t.TempDir()
	bundle := WriteFakeBundle(t, filepath.Join(dir, "python3-x86_64.AppImage"), FakeBundleOptions{
		MissingModules: []string{"tkinter"},
	})

	if out, err := runFake(t, dir, dir, bundle, "-c", "import json"); err != nil {
		t.Errorf("import json failed: %v\n%s", err, out)
	}
	out, err := runFake(t, dir, dir, bundle, "-c", "import tkinter")
	if err == nil {
		t.Fatal("import tkinter should fail")
	}
	if !strings.Contains(out, "No module named 'tkinter'") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestFakeBundle_PipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	bundle := WriteFakeBundle(t, filepath.Join(dir, "python3-x86_64.AppImage"), FakeBundleOptions{})

	if _, err := runFake(t, dir, home, bundle, "-m", "pip", "uninstall", "test-pip-install", "-y"); err == nil {
		t.Error("uninstalling an absent package should fail")
	}
	if out, err := runFake(t, dir, home, bundle, "-m", "pip", "install", "--user", "test-pip-install"); err != nil {
		t.Fatalf("install failed: %v\n%s", err, out)
	}
	out, err := runFake(t, dir, home, filepath.Join(home, ".local", "bin", "test-pip-install"))
	if err != nil {
		t.Fatalf("entry point failed: %v\n%s", err, out)
	}
	if want := "running Python 3.7.3 from " + bundle; strings.TrimSpace(out) != want {
		t.Errorf("entry point printed %q, want %q", strings.TrimSpace(out), want)
	}
}

func TestFakeBundle_Venv(t *testing.T) {
	dir := t.TempDir()
	bundle := WriteFakeBundle(t, filepath.Join(dir, "python3-x86_64.AppImage"), FakeBundleOptions{})

	if out, err := runFake(t, dir, dir, bundle, "-m", "venv", "ENV"); err != nil {
		t.Fatalf("venv failed: %v\n%s", err, out)
	}
	for _, name := range []string{"python", "activate"} {
		if _, err := os.Stat(filepath.Join(dir, "ENV", "bin", name)); err != nil {
			t.Errorf("ENV/bin/%s missing: %v", name, err)
		}
	}

	if out, err := runFake(t, dir, dir, "bash", "-c", ". ENV/bin/activate; python -m ensurepip"); err != nil {
		t.Fatalf("ensurepip failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, "ENV", "bin", "pip3")); err != nil {
		t.Errorf("ENV/bin/pip3 missing: %v", err)
	}
}

func TestCreateFakeBundle_RelativePath(t *testing.T) {
	if err := CreateFakeBundle("python3.AppImage", FakeBundleOptions{}); err == nil {
		t.Error("expected error for relative path")
	}
}

func TestSetHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	var envVar string
	if os.PathSeparator == '\\' {
		envVar = "USERPROFILE"
	} else {
		envVar = "HOME"
	}
	original := os.Getenv(envVar)

	t.Run("subtest", func(t *testing.T) {
		t.Cleanup(SetHomeDir(t, tmpDir))
		if got := os.Getenv(envVar); got != tmpDir {
			t.Errorf("%s = %q, want %q", envVar, got, tmpDir)
		}
	})

	if got := os.Getenv(envVar); got != original {
		t.Errorf("after subtest, %s = %q, want %q", envVar, got, original)
	}
}
