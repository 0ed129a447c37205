// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/niess/linuxdeploy-plugin-python/internal/bundle"
	"github.com/niess/linuxdeploy-plugin-python/internal/config"
	"github.com/niess/linuxdeploy-plugin-python/internal/invariant"
	"github.com/niess/linuxdeploy-plugin-python/internal/isolate"
	"github.com/niess/linuxdeploy-plugin-python/internal/issue"
	"github.com/niess/linuxdeploy-plugin-python/internal/modules"
	"github.com/niess/linuxdeploy-plugin-python/internal/probe"
	"github.com/niess/linuxdeploy-plugin-python/internal/roundtrip"
	"github.com/niess/linuxdeploy-plugin-python/internal/runtime"
	"github.com/niess/linuxdeploy-plugin-python/internal/venv"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps a failure to an issue catalog ID. An issue attached to an
// ActionableError anywhere in the chain wins over the sentinel mapping.
func classifyError(err error) issue.Id {
	if is, ok := issue.IssueOf(err); ok {
		return is.Id()
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.IssueID != 0 {
		return svcErr.IssueID
	}

	switch {
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, config.ErrInvalidConfigRuntimeMode):
		return issue.ConfigLoadFailedId
	case errors.Is(err, runtime.ErrRuntimeNotRegistered):
		return issue.InvalidRuntimeModeId
	case errors.Is(err, runtime.ErrNoShell):
		return issue.ShellNotFoundId
	case errors.Is(err, bundle.ErrBundleNotFound):
		return issue.BundleNotFoundId
	case errors.Is(err, bundle.ErrVersionNotFound),
		errors.Is(err, bundle.ErrDeclarationSyntax),
		errors.Is(err, bundle.ErrInvalidVersion):
		return issue.DeclarationParseFailedId
	case errors.Is(err, probe.ErrProbeOutput):
		return issue.ProbeOutputInvalidId
	case errors.Is(err, invariant.ErrInvariantViolated):
		return issue.InvariantViolatedId
	case errors.Is(err, venv.ErrMissingArtifact), errors.Is(err, venv.ErrInvalidTransition),
		errors.Is(err, venv.ErrOutsideWorkspace):
		return issue.VenvFailedId
	case errors.Is(err, roundtrip.ErrIdentityMismatch):
		return issue.PackageRoundTripFailedId
	case errors.Is(err, modules.ErrModuleMissing):
		return issue.ModuleImportFailedId
	case errors.Is(err, isolate.ErrWorkDirBusy):
		return issue.WorkDirBusyId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	case errors.Is(err, runtime.ErrExecutionFailed):
		return issue.ExecutionFailedId
	case errors.Is(err, fs.ErrNotExist):
		return issue.FileNotFoundId
	}
	return 0
}

// toServiceError classifies err and pre-renders its message.
func toServiceError(err error, verbose bool) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.StyledMessage != "" {
		return svcErr
	}
	msg := fmt.Sprintf("\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	return newServiceError(err, classifyError(err), msg)
}

// renderServiceError renders a ServiceError in the CLI layer.
// It prints the styled message first; the issue card follows in verbose mode,
// otherwise a hint pointing at it.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, verbose bool, style string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if !verbose {
		fmt.Fprintln(stderr, renderHintStyle.Render("Run with --verbose for troubleshooting steps."))
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(style)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// fail renders err and returns the ExitError a RunE handler should return.
func (a *App) fail(err error, code runtime.ExitCode, flags *rootFlags) error {
	svcErr := toServiceError(err, flags.verbose)
	renderServiceError(a.stderr, svcErr, flags.verbose, a.issueStyle())
	return &ExitError{Code: code, Err: err}
}
