// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a failure of one bundlecheck step, annotated for the
	// user: the step that failed, the bundle, declaration or directory it was
	// working on, fix-it hints and an optional catalogue entry.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("locate bundle python3.7").
	//		WithResource("./python3-x86_64.AppImage").
	//		WithSuggestion("Set bundle_dir in the configuration").
	//		WithIssue(issue.BundleNotFoundId).
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		Operation   string
		Resource    string
		Suggestions []string
		Cause       error
		// IssueId links the error to a catalogue entry (zero when unset).
		IssueId Id
	}

	// ErrorContext accumulates the annotations of an ActionableError. A
	// context can be prepared before the step runs and completed with Wrap
	// once the step fails.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		cause       error
		issueId     Id
	}
)

// NewErrorContext creates an empty ErrorContext.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	var msg strings.Builder
	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)
	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}
	return msg.String()
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for the terminal. Suggestions follow the message
// as bullets. Verbose output appends the cause chain, skipping links whose
// text adds nothing to the previous one.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		msg.WriteString("\n")
		for _, s := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(s)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		depth := 1
		prev := ""
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			text := err.Error()
			if text == prev {
				continue
			}
			fmt.Fprintf(&msg, "\n  %d. %s", depth, text)
			prev = text
			depth++
		}
	}
	return msg.String()
}

// IssueOf returns the catalogue issue linked to the outermost ActionableError
// in err's chain that carries one.
func IssueOf(err error) (*Issue, bool) {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return nil, false
		}
		if ae.IssueId != 0 {
			i := Get(ae.IssueId)
			return i, i != nil
		}
		err = ae.Cause
	}
	return nil, false
}

// WithOperation names the failed step as a verb phrase ("create venv").
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends a hint. Empty and repeated hints are dropped.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	if sug == "" {
		return c
	}
	for _, s := range c.suggestions {
		if s == sug {
			return c
		}
	}
	c.suggestions = append(c.suggestions, sug)
	return c
}

func (c *ErrorContext) WithIssue(id Id) *ErrorContext {
	c.issueId = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// BuildError returns the annotated error. Without an operation there is
// nothing to annotate and the wrapped cause is returned as is, so a failure
// is never turned into a nil error.
func (c *ErrorContext) BuildError() error {
	if c.operation == "" {
		return c.cause
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
		IssueId:     c.issueId,
	}
}
