// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Runtime type constants for the supported execution strategies.
const (
	RuntimeTypeNative  RuntimeType = "native"
	RuntimeTypeVirtual RuntimeType = "virtual"
)

// ErrRuntimeNotRegistered is returned by Registry.Get for unknown runtime types.
var ErrRuntimeNotRegistered = errors.New("runtime not registered")

type (
	// Command is one shell command line to execute.
	Command struct {
		// Line is the shell command line (POSIX syntax).
		Line string
		// Activate names a script sourced in the same shell before Line runs.
		// It is how a virtual environment's hooks reach the command.
		Activate string
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env is the complete environment ("KEY=VALUE"). Nil means an empty environment.
		Env []string
	}

	// Result contains the result of a command execution
	Result struct {
		// ExitCode is the exit code of the command
		ExitCode ExitCode
		// Error contains any infrastructure error (the command could not be run at all)
		Error error
		// Output contains the merged stdout and stderr
		Output string
	}

	// Runner defines the interface for command execution
	Runner interface {
		// Name returns the runtime name
		Name() string
		// Run executes the command, waits for it, and captures its merged output
		Run(ctx context.Context, cmd Command) *Result
		// Available returns whether this runtime is available on the current system
		Available() bool
	}

	// RuntimeType identifies the type of runtime.
	//
	//nolint:revive // RuntimeType is more descriptive than Type for external callers
	RuntimeType string

	// Registry holds all available runtimes
	Registry struct {
		runtimes map[RuntimeType]Runner
	}
)

// Success returns true if the command executed successfully
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Script returns the shell source for the command, with the activation
// script sourced first when one is set.
func (c Command) Script() string {
	if c.Activate == "" {
		return c.Line
	}
	return ". " + Quote(c.Activate) + "; " + c.Line
}

// String returns the command as it would be typed in a shell.
func (c Command) String() string {
	return c.Script()
}

// Quote returns s quoted for safe use as a single shell word.
// Strings that need no quoting are returned unchanged.
func Quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Only strings holding NUL bytes cannot be quoted; they cannot be
		// passed to a process either, so the command will fail visibly.
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return q
}

// Join quotes each argument and joins them into one command line.
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}

// NewRegistry creates a new runtime registry
func NewRegistry() *Registry {
	return &Registry{
		runtimes: make(map[RuntimeType]Runner),
	}
}

// Register adds a runtime to the registry
func (r *Registry) Register(typ RuntimeType, rt Runner) {
	r.runtimes[typ] = rt
}

// Get returns a runtime by type
func (r *Registry) Get(typ RuntimeType) (Runner, error) {
	rt, ok := r.runtimes[typ]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrRuntimeNotRegistered, typ)
	}
	return rt, nil
}

// Available returns all available runtimes, sorted by name
func (r *Registry) Available() []RuntimeType {
	var types []RuntimeType
	for typ, rt := range r.runtimes {
		if rt.Available() {
			types = append(types, typ)
		}
	}
	slices.Sort(types)
	return types
}

// EnvToSlice converts a map of environment variables to a slice
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// MergeEnv returns base with every entry of overlay applied on top.
// Later values win; the order of first appearance is preserved.
func MergeEnv(base []string, overlay map[string]string) []string {
	result := make([]string, 0, len(base)+len(overlay))
	seen := make(map[string]bool, len(overlay))
	for _, e := range base {
		idx := findEnvSeparator(e)
		if idx == -1 {
			// Malformed env var, keep it
			result = append(result, e)
			continue
		}
		name := e[:idx]
		if v, ok := overlay[name]; ok {
			if !seen[name] {
				result = append(result, name+"="+v)
				seen[name] = true
			}
			continue
		}
		result = append(result, e)
	}
	for _, e := range EnvToSlice(overlay) {
		name := e[:findEnvSeparator(e)]
		if !seen[name] {
			result = append(result, e)
		}
	}
	return result
}

// LookupEnv returns the value of name in an environment slice.
func LookupEnv(env []string, name string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		idx := findEnvSeparator(env[i])
		if idx != -1 && env[i][:idx] == name {
			return env[i][idx+1:], true
		}
	}
	return "", false
}

// findEnvSeparator returns the index of the '=' separator in an environment variable string
func findEnvSeparator(e string) int {
	return strings.IndexByte(e, '=')
}
