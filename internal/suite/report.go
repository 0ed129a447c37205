// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	// CheckResult is the outcome of one check.
	CheckResult struct {
		Name     string
		Kind     Kind
		Err      error
		Duration time.Duration
	}

	// Report collects the outcome of a run.
	Report struct {
		// RunID identifies the run in logs.
		RunID   uuid.UUID
		Started time.Time
		Results []CheckResult
		// Skipped lists planned checks that did not run because an earlier one failed.
		Skipped []string
	}

	// CheckError attributes a failure to the check it happened in.
	CheckError struct {
		Check string
		Err   error
	}
)

// Passed reports whether the check succeeded.
func (r CheckResult) Passed() bool { return r.Err == nil }

// Passed reports whether every check that ran succeeded and none was skipped.
func (r *Report) Passed() bool {
	return r.Failure() == nil && len(r.Skipped) == 0
}

// Failure returns the failed check, or nil.
func (r *Report) Failure() *CheckResult {
	for i := range r.Results {
		if r.Results[i].Err != nil {
			return &r.Results[i]
		}
	}
	return nil
}

// Duration returns the total time spent in checks.
func (r *Report) Duration() time.Duration {
	var d time.Duration
	for _, res := range r.Results {
		d += res.Duration
	}
	return d
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return fmt.Sprintf("check %s failed: %v", e.Check, e.Err)
}

// Unwrap returns the underlying failure.
func (e *CheckError) Unwrap() error { return e.Err }
