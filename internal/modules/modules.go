// SPDX-License-Identifier: MPL-2.0

// Package modules checks that a bundle ships a complete standard library by
// importing each module of a catalogue in a fresh interpreter process.
package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
)

var (
	// ErrModuleMissing is the sentinel error wrapped by ImportError.
	ErrModuleMissing = errors.New("module cannot be imported")
	// ErrInvalidModuleName is returned for names that are not dotted identifiers.
	ErrInvalidModuleName = errors.New("invalid module name")
)

// ImportError reports the first module that failed to import.
type ImportError struct {
	Module string
	// Output is the interpreter's merged output, usually a traceback.
	Output string
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	msg := fmt.Sprintf("cannot import module %s", e.Module)
	if out := lastLine(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap returns ErrModuleMissing for errors.Is() compatibility.
func (e *ImportError) Unwrap() error { return ErrModuleMissing }

// ImportCommand returns the command line importing name with interpreter.
func ImportCommand(interpreter, name string) string {
	return runtime.Join(interpreter, "-c", "import "+name)
}

// Verify imports each name with interpreter, one process per module, and
// stops at the first failure.
func Verify(ctx context.Context, s *runtime.Session, interpreter string, names []string) error {
	for _, name := range names {
		if !ValidName(name) {
			return fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
		}
		out, err := s.Run(ctx, ImportCommand(interpreter, name))
		if err != nil {
			var execErr *runtime.ExecutionError
			if errors.As(err, &execErr) && execErr.Cause == nil {
				return &ImportError{Module: name, Output: out}
			}
			return err
		}
		slog.Debug("module imported", "module", name)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i != -1 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
