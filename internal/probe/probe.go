// SPDX-License-Identifier: MPL-2.0

// Package probe asks an interpreter to describe its runtime configuration.
//
// A constant Python payload is written to the workspace and run by the
// interpreter under test, optionally after sourcing a virtual environment's
// activation script. The payload writes a Record as JSON to a file, which is
// read back, decoded and validated. Probing never retries.
package probe

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
)

const (
	// ScriptVersion is the record schema written by Script.
	ScriptVersion = 1
	// ScriptFile is the workspace file the payload is written to.
	ScriptFile = "probe_script.py"
	// RecordFile is the workspace file the payload writes the record to.
	RecordFile = "probe_record.json"
)

// Script is the probe payload, compatible with Python 2.7 and 3.x.
//
//go:embed probe.py
var Script string

// Target names the interpreter to probe.
type Target struct {
	// Interpreter is a path or a command name resolved through PATH.
	Interpreter string
	// Activate is an activation script sourced before running the interpreter.
	Activate string
}

// Command returns the shell command line that runs the probe.
func (t Target) Command() string {
	return runtime.Join(t.Interpreter, ScriptFile, RecordFile)
}

// Probe runs the payload with target and returns the validated record.
//
// A stale record is removed first so that a failing interpreter can never be
// mistaken for a successful one. A non-zero exit is returned as a
// *runtime.ExecutionError; a missing or malformed record as an *OutputError.
func Probe(ctx context.Context, s *runtime.Session, target Target) (*Record, error) {
	ws := s.Workspace
	if err := ws.RemoveAll(ctx, RecordFile); err != nil {
		return nil, fmt.Errorf("failed to remove stale probe record: %w", err)
	}
	if err := ws.WriteFile(ctx, ScriptFile, []byte(Script)); err != nil {
		return nil, fmt.Errorf("failed to write probe script: %w", err)
	}

	var opts []runtime.CommandOption
	if target.Activate != "" {
		opts = append(opts, runtime.WithActivation(target.Activate))
	}
	if _, err := s.Run(ctx, target.Command(), opts...); err != nil {
		return nil, err
	}

	data, err := ws.ReadFile(ctx, RecordFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &OutputError{File: RecordFile, Reason: "interpreter exited without writing a record"}
		}
		return nil, &OutputError{File: RecordFile, Reason: "cannot read record", Err: err}
	}

	rec, err := Decode(data, RecordFile)
	if err != nil {
		return nil, err
	}
	slog.Debug("probe record", "interpreter", target.Interpreter, "executable", rec.Executable,
		"prefix", rec.Prefix, "version", rec.Version)
	return rec, nil
}
