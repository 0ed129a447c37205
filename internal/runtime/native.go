// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// NativeRuntime executes command lines using the host shell
type NativeRuntime struct {
	// Shell overrides the default shell
	Shell string
	// ShellArgs are arguments passed to the shell before the script
	ShellArgs []string
}

// ErrNoShell is returned when no POSIX shell can be found on the host.
var ErrNoShell = errors.New("no shell found")

// NewNativeRuntime creates a new native runtime
func NewNativeRuntime() *NativeRuntime {
	return &NativeRuntime{}
}

// Name returns the runtime name
func (r *NativeRuntime) Name() string {
	return string(RuntimeTypeNative)
}

// Available returns whether this runtime is available
func (r *NativeRuntime) Available() bool {
	_, err := r.getShell()
	return err == nil
}

// Run executes the command through the host shell and captures its merged output.
func (r *NativeRuntime) Run(ctx context.Context, c Command) *Result {
	shell, err := r.getShell()
	if err != nil {
		return NewErrorResult(1, err)
	}

	if err := validateWorkDir(c.Dir); err != nil {
		return NewErrorResult(1, err)
	}

	args := append(r.getShellArgs(), c.Script())
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	if cmd.Env == nil {
		cmd.Env = []string{}
	}

	out := newCombinedOutput()
	cmd.Stdout = out
	cmd.Stderr = out

	return extractExitCode(cmd.Run(), out)
}

// getShell determines which shell to use
func (r *NativeRuntime) getShell() (string, error) {
	// Use configured shell if set
	if r.Shell != "" {
		shell, err := exec.LookPath(r.Shell)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNoShell, r.Shell)
		}
		return shell, nil
	}

	// Activation scripts generated by venv are written for bash; prefer it.
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash, nil
	}
	if sh, err := exec.LookPath("sh"); err == nil {
		return sh, nil
	}
	return "", ErrNoShell
}

// getShellArgs returns the arguments to pass to the shell
func (r *NativeRuntime) getShellArgs() []string {
	if len(r.ShellArgs) > 0 {
		return append([]string(nil), r.ShellArgs...)
	}
	return []string{"-c"}
}

// validateWorkDir validates that a working directory exists and is accessible.
// This provides a better error message than letting exec fail with a cryptic error.
func validateWorkDir(dir string) error {
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied: %s", dir)
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	return nil
}
