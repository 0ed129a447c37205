// SPDX-License-Identifier: MPL-2.0

// Package containertest runs bundle checks inside a container started with
// testcontainers-go. Runner and Workspace implement the runtime interfaces
// over container exec and file copy, so probes and virtual environments can
// be exercised against a real interpreter without touching the host.
package containertest

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultImage ships the interpreter version the default python3 bundle declares.
	DefaultImage = "python:3.7-slim"
	// WorkDir is the workspace directory inside the container.
	WorkDir = "/work"
)

type (
	// Runner executes commands with sh -c inside a running container.
	Runner struct {
		Container testcontainers.Container
	}

	// Workspace is a directory inside a running container.
	Workspace struct {
		Container testcontainers.Container
		Root      string
	}
)

// Available safely checks if testcontainers can be used.
func Available() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer func() { _ = provider.Close() }()
	return true
}

// Start skips the test in short mode or without a container engine, and
// otherwise starts image (DefaultImage when empty) with WorkDir created.
// The container is terminated when the test ends.
func Start(t *testing.T, image string) testcontainers.Container {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !Available() {
		t.Skip("skipping container integration test: testcontainers provider not available")
	}
	if image == "" {
		image = DefaultImage
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      image,
			Entrypoint: []string{"sh", "-c", "mkdir -p " + WorkDir + " && exec sleep infinity"},
			WaitingFor: wait.ForExec([]string{"test", "-d", WorkDir}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start container %s: %v", image, err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})
	return c
}

// Session returns a runtime session whose commands and files live in c.
func Session(c testcontainers.Container, env []string) *runtime.Session {
	return &runtime.Session{
		Runner:    &Runner{Container: c},
		Workspace: &Workspace{Container: c, Root: WorkDir},
		Env:       env,
	}
}

// Name returns the runtime name.
func (r *Runner) Name() string { return "container" }

// Available reports whether the container is set.
func (r *Runner) Available() bool { return r.Container != nil }

// Run executes the command in the container and captures the merged output.
func (r *Runner) Run(ctx context.Context, c runtime.Command) *runtime.Result {
	opts := []tcexec.ProcessOption{tcexec.Multiplexed()}
	if c.Dir != "" {
		opts = append(opts, tcexec.WithWorkingDir(c.Dir))
	}
	if c.Env != nil {
		opts = append(opts, tcexec.WithEnv(c.Env))
	}

	code, reader, err := r.Container.Exec(ctx, []string{"sh", "-c", c.Script()}, opts...)
	if err != nil {
		return runtime.NewErrorResult(1, fmt.Errorf("container exec failed: %w", err))
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return runtime.NewErrorResult(1, fmt.Errorf("failed to read container output: %w", err))
	}
	return runtime.NewExitCodeResult(runtime.ExitCode(code), string(out))
}

// Dir returns the workspace directory inside the container.
func (w *Workspace) Dir() string { return w.Root }

func (w *Workspace) path(name string) string {
	if path.IsAbs(name) {
		return name
	}
	return path.Join(w.Root, name)
}

// WriteFile copies data into the container.
func (w *Workspace) WriteFile(ctx context.Context, name string, data []byte) error {
	return w.Container.CopyToContainer(ctx, data, w.path(name), 0o644)
}

// ReadFile copies a file out of the container.
func (w *Workspace) ReadFile(ctx context.Context, name string) ([]byte, error) {
	rc, err := w.Container.CopyFileFromContainer(ctx, w.path(name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// RemoveAll removes name inside the container.
func (w *Workspace) RemoveAll(ctx context.Context, name string) error {
	code, reader, err := w.Container.Exec(ctx, []string{"rm", "-rf", w.path(name)}, tcexec.Multiplexed())
	if err != nil {
		return err
	}
	if code != 0 {
		out, _ := io.ReadAll(reader)
		return fmt.Errorf("rm -rf %s exited with %d: %s", w.path(name), code, strings.TrimSpace(string(out)))
	}
	return nil
}

// Exists reports whether name exists inside the container.
func (w *Workspace) Exists(ctx context.Context, name string) (bool, error) {
	code, reader, err := w.Container.Exec(ctx, []string{"test", "-e", w.path(name)}, tcexec.Multiplexed())
	if err != nil {
		return false, err
	}
	_, _ = io.Copy(io.Discard, reader)
	return code == 0, nil
}
