// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrExecutionFailed is the sentinel error wrapped by ExecutionError.
var ErrExecutionFailed = errors.New("command execution failed")

type (
	// Session binds a Runner to a Workspace and an environment. Every check
	// executes external commands through Session.Run, which owns the
	// fail-fast policy.
	Session struct {
		// Runner executes the command lines.
		Runner Runner
		// Workspace is the working directory shared by every command of the session.
		Workspace Workspace
		// Env is the complete environment given to each command.
		Env []string
		// Timeout bounds each command when positive. Zero means no timeout.
		Timeout time.Duration
	}

	// CommandOption customizes a single Session.Run call.
	CommandOption func(*commandOptions)

	commandOptions struct {
		activate string
		tolerant bool
	}

	// ExecutionError reports a command that exited non-zero or could not be run.
	ExecutionError struct {
		// Command is the full shell command line.
		Command string
		// ExitCode is the exit status; 1 when the command could not be started.
		ExitCode ExitCode
		// Output is the merged stdout and stderr.
		Output string
		// Cause is the infrastructure error, if any.
		Cause error
	}
)

// WithActivation sources the given activation script before the command line.
func WithActivation(path string) CommandOption {
	return func(o *commandOptions) { o.activate = path }
}

// Tolerant makes a non-zero exit status succeed. It is meant for steps where
// failure is an expected state, such as uninstalling an absent package.
// Infrastructure errors (shell missing, context cancelled) still fail.
func Tolerant() CommandOption {
	return func(o *commandOptions) { o.tolerant = true }
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "command %q exited with status %s", e.Command, e.ExitCode)
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg.WriteString("\n")
		msg.WriteString(out)
	}
	return msg.String()
}

// Unwrap returns ErrExecutionFailed and the cause for errors.Is/As.
func (e *ExecutionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrExecutionFailed, e.Cause}
	}
	return []error{ErrExecutionFailed}
}

// Command builds the Command that Run would execute for line.
func (s *Session) Command(line string, opts ...CommandOption) Command {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}
	return Command{
		Line:     line,
		Activate: o.activate,
		Dir:      s.Workspace.Dir(),
		Env:      s.Env,
	}
}

// Run executes line, waits for it, and returns its merged output.
// A non-zero exit is returned as an *ExecutionError unless Tolerant is given.
func (s *Session) Run(ctx context.Context, line string, opts ...CommandOption) (string, error) {
	var o commandOptions
	for _, opt := range opts {
		opt(&o)
	}
	cmd := s.Command(line, opts...)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	slog.Debug("running command", "runtime", s.Runner.Name(), "command", cmd.String(), "dir", cmd.Dir)
	start := time.Now()
	result := s.Runner.Run(ctx, cmd)
	slog.Debug("command finished", "command", cmd.String(), "exit_code", result.ExitCode, "duration", time.Since(start))

	if result.Error != nil {
		return result.Output, &ExecutionError{
			Command:  cmd.String(),
			ExitCode: result.ExitCode,
			Output:   result.Output,
			Cause:    result.Error,
		}
	}
	if !result.ExitCode.IsSuccess() {
		if o.tolerant {
			slog.Debug("ignoring non-zero exit of tolerant command", "command", cmd.String(), "exit_code", result.ExitCode)
			return result.Output, nil
		}
		return result.Output, &ExecutionError{
			Command:  cmd.String(),
			ExitCode: result.ExitCode,
			Output:   result.Output,
		}
	}
	return result.Output, nil
}
