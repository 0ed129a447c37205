// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualRuntime executes command lines using the embedded mvdan/sh interpreter.
// Programs named by the script (the bundle, python, pip) are still real
// processes; only the shell itself is in-process.
type VirtualRuntime struct{}

// NewVirtualRuntime creates a new virtual runtime
func NewVirtualRuntime() *VirtualRuntime {
	return &VirtualRuntime{}
}

// Name returns the runtime name
func (r *VirtualRuntime) Name() string {
	return string(RuntimeTypeVirtual)
}

// Available returns whether this runtime is available
func (r *VirtualRuntime) Available() bool {
	// Virtual runtime is always available as it's built-in
	return true
}

// Validate checks that the command's script parses.
func (r *VirtualRuntime) Validate(c Command) error {
	if _, err := syntax.NewParser().Parse(strings.NewReader(c.Script()), "command"); err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}
	return nil
}

// Run executes the command in the virtual shell and captures its merged output.
func (r *VirtualRuntime) Run(ctx context.Context, c Command) *Result {
	prog, err := syntax.NewParser().Parse(strings.NewReader(c.Script()), "command")
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to parse script: %w", err))
	}

	if err := validateWorkDir(c.Dir); err != nil {
		return NewErrorResult(1, err)
	}

	out := newCombinedOutput()
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(c.Env...)),
		interp.StdIO(nil, out, out),
	}
	if c.Dir != "" {
		opts = append(opts, interp.Dir(c.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return NewErrorResult(1, fmt.Errorf("failed to create interpreter: %w", err))
	}

	// A non-zero status of the last command comes back as interp.ExitStatus.
	return extractExitCode(runner.Run(ctx, prog), out)
}
