// SPDX-License-Identifier: MPL-2.0

// Package venv verifies that a virtual environment created from a bundle
// behaves like one created from a standard interpreter install.
//
// A Verifier walks a fixed sequence of states:
//
//	absent -> created -> bootstrapped -> probed -> done
//
// Each step is only valid from the state before it. The environment directory
// is kept after the check; a new Verifier on the same directory starts over
// from absent and recreates it.
package venv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/invariant"
	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
)

// Verifier states, in order.
const (
	StateAbsent State = iota
	StateCreated
	StateBootstrapped
	StateProbed
	StateDone
)

// DefaultDir is the environment directory used when none is configured.
const DefaultDir = "ENV"

var (
	// ErrInvalidTransition is returned when a step is called out of order.
	ErrInvalidTransition = errors.New("invalid venv state transition")
	// ErrMissingArtifact is returned when a step succeeded but did not produce its file.
	ErrMissingArtifact = errors.New("missing venv artifact")
	// ErrOutsideWorkspace is returned when the environment directory is not
	// strictly inside the session workspace.
	ErrOutsideWorkspace = errors.New("venv directory outside workspace")
)

type (
	// State is the progress of a Verifier.
	State int

	// Descriptor names the files of a virtual environment.
	Descriptor struct {
		// Root is the absolute environment directory.
		Root string
		// Python is the environment's interpreter.
		Python string
		// Activate is the activation script.
		Activate string
		// Pip is the major-versioned pip entry point.
		Pip string
	}

	// Verifier runs the venv check for one bundle.
	Verifier struct {
		session *runtime.Session
		bundle  bundle.Descriptor
		desc    Descriptor
		state   State
		record  *probe.Record
		// rootErr is set when desc.Root may not be removed and recreated.
		rootErr error
	}

	// TransitionError reports a step called from the wrong state.
	TransitionError struct {
		Step string
		From State
		To   State
	}

	// MissingArtifactError reports a file a step should have produced.
	MissingArtifactError struct {
		Step string
		Path string
	}
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateCreated:
		return "created"
	case StateBootstrapped:
		return "bootstrapped"
	case StateProbed:
		return "probed"
	case StateDone:
		return "done"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a venv in state %s (requires %s)", e.Step, e.From, e.To-1)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Error implements the error interface.
func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s did not produce %s", e.Step, e.Path)
}

// Unwrap returns ErrMissingArtifact for errors.Is() compatibility.
func (e *MissingArtifactError) Unwrap() error { return ErrMissingArtifact }

// PipName returns the pip entry point name for an interpreter major version.
func PipName(major int) string {
	return "pip" + strconv.Itoa(major)
}

// NewDescriptor returns the descriptor of an environment rooted at root.
func NewDescriptor(root string, major int) Descriptor {
	root = path.Clean(root)
	bin := path.Join(root, "bin")
	return Descriptor{
		Root:     root,
		Python:   path.Join(bin, "python"),
		Activate: path.Join(bin, "activate"),
		Pip:      path.Join(bin, PipName(major)),
	}
}

// New returns a Verifier creating an environment from b in dir.
// A relative dir is resolved against the session workspace. A dir that does
// not end up strictly inside the workspace makes Create fail before anything
// is removed.
func New(s *runtime.Session, b bundle.Descriptor, dir string) *Verifier {
	if dir == "" {
		dir = DefaultDir
	}
	wsDir := path.Clean(s.Workspace.Dir())
	if !path.IsAbs(dir) {
		dir = path.Join(wsDir, dir)
	}
	v := &Verifier{
		session: s,
		bundle:  b,
		desc:    NewDescriptor(dir, b.Version.Major),
	}
	if !within(wsDir, v.desc.Root) {
		v.rootErr = fmt.Errorf("%w: %s is not below %s", ErrOutsideWorkspace, v.desc.Root, wsDir)
	}
	return v
}

// within reports whether root is a strict descendant of dir. Both are clean.
func within(dir, root string) bool {
	if root == dir {
		return false
	}
	if dir == "/" {
		return path.IsAbs(root)
	}
	return strings.HasPrefix(root, dir+"/")
}

// State returns the current state.
func (v *Verifier) State() State { return v.state }

// Descriptor returns the environment's files.
func (v *Verifier) Descriptor() Descriptor { return v.desc }

// Record returns the probe record, or nil before Probe succeeded.
func (v *Verifier) Record() *probe.Record { return v.record }

// Create removes any previous environment and creates a new one with the bundle.
func (v *Verifier) Create(ctx context.Context) error {
	if err := v.require("create", StateCreated); err != nil {
		return err
	}
	if v.rootErr != nil {
		return v.rootErr
	}
	ws := v.session.Workspace
	if err := ws.RemoveAll(ctx, v.desc.Root); err != nil {
		return fmt.Errorf("failed to remove previous venv %s: %w", v.desc.Root, err)
	}
	if _, err := v.session.Run(ctx, runtime.Join(v.bundle.Path, "-m", "venv", v.desc.Root)); err != nil {
		return err
	}
	if err := v.expect(ctx, "venv creation", v.desc.Python); err != nil {
		return err
	}
	v.advance(StateCreated)
	return nil
}

// Bootstrap installs pip into the environment with ensurepip.
func (v *Verifier) Bootstrap(ctx context.Context) error {
	if err := v.require("bootstrap", StateBootstrapped); err != nil {
		return err
	}
	if _, err := v.session.Run(ctx, "python -m ensurepip", runtime.WithActivation(v.desc.Activate)); err != nil {
		return err
	}
	if err := v.expect(ctx, "ensurepip", v.desc.Pip); err != nil {
		return err
	}
	v.advance(StateBootstrapped)
	return nil
}

// Probe runs the configuration probe with the activated environment.
func (v *Verifier) Probe(ctx context.Context) (*probe.Record, error) {
	if err := v.require("probe", StateProbed); err != nil {
		return nil, err
	}
	rec, err := probe.Probe(ctx, v.session, probe.Target{Interpreter: "python", Activate: v.desc.Activate})
	if err != nil {
		return nil, err
	}
	v.record = rec
	v.advance(StateProbed)
	return rec, nil
}

// Check evaluates the venv invariants against the probe record.
func (v *Verifier) Check() error {
	if err := v.require("check", StateDone); err != nil {
		return err
	}
	if err := invariant.Check(v.record, v.Expectation()); err != nil {
		return err
	}
	v.advance(StateDone)
	return nil
}

// Expectation returns what the environment's probe record must match.
func (v *Verifier) Expectation() invariant.Expectation {
	return invariant.Expectation{
		Mode:       invariant.ModeVenv,
		Version:    v.bundle.Version,
		Executable: v.desc.Python,
		Root:       v.desc.Root,
	}
}

// Verify runs every step in order and returns the environment's descriptor.
func (v *Verifier) Verify(ctx context.Context) (Descriptor, error) {
	if err := v.Create(ctx); err != nil {
		return v.desc, err
	}
	if err := v.Bootstrap(ctx); err != nil {
		return v.desc, err
	}
	if _, err := v.Probe(ctx); err != nil {
		return v.desc, err
	}
	if err := v.Check(); err != nil {
		return v.desc, err
	}
	return v.desc, nil
}

func (v *Verifier) require(step string, to State) error {
	if v.state != to-1 {
		return &TransitionError{Step: step, From: v.state, To: to}
	}
	return nil
}

func (v *Verifier) advance(to State) {
	slog.Debug("venv state", "root", v.desc.Root, "from", v.state, "to", to)
	v.state = to
}

func (v *Verifier) expect(ctx context.Context, step, name string) error {
	ok, err := v.session.Workspace.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", name, err)
	}
	if !ok {
		return &MissingArtifactError{Step: step, Path: name}
	}
	return nil
}
