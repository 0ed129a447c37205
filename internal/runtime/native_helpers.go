// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"errors"
	"os/exec"
	"sync"

	"mvdan.cc/sh/v3/interp"
)

// combinedOutput collects stdout and stderr into one buffer, in write order.
// The mutex matters for the virtual runtime, where builtins and external
// programs may write through different paths.
type combinedOutput struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func newCombinedOutput() *combinedOutput {
	return &combinedOutput{}
}

// Write implements io.Writer.
func (o *combinedOutput) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(p)
}

// String returns everything written so far.
func (o *combinedOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}

// extractExitCode determines the exit code from a command execution error.
// Returns a Result with exit code, captured output, and any error.
func extractExitCode(err error, captured *combinedOutput) *Result {
	result := &Result{}

	if captured != nil {
		result.Output = captured.String()
	}

	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Command executed but returned non-zero exit code
		code := ExitCode(exitErr.ExitCode())
		if validateErr := code.Validate(); validateErr != nil {
			// Killed by a signal (ExitCode() == -1)
			result.ExitCode = 1
			result.Error = err
			return result
		}
		result.ExitCode = code
		return result
	}

	var exitStatus interp.ExitStatus
	if errors.As(err, &exitStatus) {
		result.ExitCode = ExitCode(exitStatus)
		return result
	}

	// Some other error (e.g., shell not found, context cancelled)
	result.ExitCode = 1
	result.Error = err
	return result
}
