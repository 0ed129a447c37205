// SPDX-License-Identifier: MPL-2.0

package modules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
	"github.com/niess/linuxdeploy-plugin-python/internal/testutil"
)

type countingRunner struct {
	failOn   string
	commands []string
}

func (r *countingRunner) Name() string    { return "counting" }
func (r *countingRunner) Available() bool { return true }

func (r *countingRunner) Run(_ context.Context, c runtime.Command) *runtime.Result {
	r.commands = append(r.commands, c.Line)
	if r.failOn != "" && strings.HasSuffix(c.Line, "'import "+r.failOn+"'") {
		return runtime.NewExitCodeResult(1, "Traceback (most recent call last):\n  File \"<string>\", line 1\nImportError: No module named "+r.failOn+"\n")
	}
	return runtime.NewSuccessResult("")
}

func countingSession(t *testing.T, failOn string) (*runtime.Session, *countingRunner) {
	t.Helper()
	ws, err := runtime.NewLocalWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := &countingRunner{failOn: failOn}
	return &runtime.Session{Runner: r, Workspace: ws}, r
}

func TestImportCommand(t *testing.T) {
	got := ImportCommand("/tmp/test-linuxdeploy-plugin-python/python3-x86_64.AppImage", "xml.sax")
	want := "/tmp/test-linuxdeploy-plugin-python/python3-x86_64.AppImage -c 'import xml.sax'"
	if got != want {
		t.Errorf("ImportCommand() = %q, want %q", got, want)
	}
}

func TestVerify_OneProcessPerModule(t *testing.T) {
	s, r := countingSession(t, "")
	names := []string{"json", "hashlib", "ctypes"}

	if err := Verify(context.Background(), s, "python3", names); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if len(r.commands) != len(names) {
		t.Errorf("ran %d commands, want %d", len(r.commands), len(names))
	}
}

func TestVerify_StopsAtFirstMissing(t *testing.T) {
	s, r := countingSession(t, "hashlib")

	err := Verify(context.Background(), s, "python3", []string{"json", "hashlib", "ctypes"})
	if !errors.Is(err, ErrModuleMissing) {
		t.Fatalf("expected ErrModuleMissing, got %v", err)
	}
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Module != "hashlib" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "ImportError: No module named hashlib") {
		t.Errorf("error should carry the last traceback line: %v", err)
	}
	if len(r.commands) != 2 {
		t.Errorf("ran %d commands, want 2", len(r.commands))
	}
}

func TestVerify_RejectsInvalidName(t *testing.T) {
	s, r := countingSession(t, "")
	err := Verify(context.Background(), s, "python3", []string{"json; touch pwned"})
	if !errors.Is(err, ErrInvalidModuleName) {
		t.Errorf("expected ErrInvalidModuleName, got %v", err)
	}
	if len(r.commands) != 0 {
		t.Error("an invalid name must not be executed")
	}
}

func TestVerify_FakeBundle(t *testing.T) {
	dir := t.TempDir()
	bundle := testutil.WriteFakeBundle(t, filepath.Join(dir, "python2-x86_64.AppImage"), testutil.FakeBundleOptions{
		Version:        "2.7.16",
		MissingModules: []string{"sqlite3"},
	})
	ws, err := runtime.NewLocalWorkspace(dir)
	if err != nil {
		t.Fatal(err)
	}
	s := &runtime.Session{Runner: runtime.NewNativeRuntime(), Workspace: ws, Env: os.Environ()}

	names := Default().For(2)
	err = Verify(context.Background(), s, bundle, names)
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Module != "sqlite3" {
		t.Fatalf("expected sqlite3 to be missing, got %v", err)
	}

	if err := Verify(context.Background(), s, bundle, Default().Without("sqlite3").For(2)); err != nil {
		t.Errorf("Verify() without sqlite3: %v", err)
	}
}
