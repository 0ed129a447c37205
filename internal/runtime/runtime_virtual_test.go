// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVirtualRuntime_InlineScript(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	result := rt.Run(context.Background(), Command{Line: "echo 'Hello from virtual'"})

	if !result.Success() {
		t.Fatalf("Run() exit code = %d, error = %v", result.ExitCode, result.Error)
	}
	if got := strings.TrimSpace(result.Output); got != "Hello from virtual" {
		t.Errorf("Run() output = %q, want %q", got, "Hello from virtual")
	}
}

func TestVirtualRuntime_ExitCode(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	result := rt.Run(context.Background(), Command{Line: "echo failing; exit 7"})

	if result.Error != nil {
		t.Fatalf("Run() error = %v, want nil for a normal non-zero exit", result.Error)
	}
	if result.ExitCode != 7 {
		t.Errorf("Run() exit code = %d, want 7", result.ExitCode)
	}
	if !strings.Contains(result.Output, "failing") {
		t.Errorf("Run() output = %q, want output captured before exit", result.Output)
	}
}

func TestVirtualRuntime_LastCommandStatus(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	result := rt.Run(context.Background(), Command{Line: "true; false"})

	if result.ExitCode != 1 {
		t.Errorf("Run() exit code = %d, want 1", result.ExitCode)
	}
}

func TestVirtualRuntime_SourcesActivation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	activate := filepath.Join(dir, "activate")
	script := "VIRTUAL_ENV=" + dir + "\nexport VIRTUAL_ENV\n"
	if err := os.WriteFile(activate, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	rt := NewVirtualRuntime()
	result := rt.Run(context.Background(), Command{
		Line:     `echo "$VIRTUAL_ENV"`,
		Activate: activate,
		Dir:      dir,
	})

	if !result.Success() {
		t.Fatalf("Run() failed: exit %d, %v\n%s", result.ExitCode, result.Error, result.Output)
	}
	if got := strings.TrimSpace(result.Output); got != dir {
		t.Errorf("Run() output = %q, want %q", got, dir)
	}
}

func TestVirtualRuntime_SyntaxError(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	if err := rt.Validate(Command{Line: "if then fi ("}); err == nil {
		t.Error("Validate() accepted an invalid script")
	}

	result := rt.Run(context.Background(), Command{Line: "if then fi ("})
	if result.Error == nil {
		t.Error("Run() returned no error for an invalid script")
	}
}

func TestVirtualRuntime_Env(t *testing.T) {
	t.Parallel()

	rt := NewVirtualRuntime()
	result := rt.Run(context.Background(), Command{
		Line: `echo "$HOME:$USER"`,
		Env:  []string{"HOME=/tmp/home/beta", "USER=beta"},
	})

	if got := strings.TrimSpace(result.Output); got != "/tmp/home/beta:beta" {
		t.Errorf("Run() output = %q, want %q", got, "/tmp/home/beta:beta")
	}
}
