// SPDX-License-Identifier: MPL-2.0

// Package runtime provides the command execution layer used by every check.
//
// Two runtime implementations are available:
//   - native: executes command lines with the host shell (bash, falling back to sh)
//   - virtual: executes command lines with an embedded shell interpreter (mvdan/sh)
//
// Both implement the Runner interface. Callers never use a Runner directly:
// a Session binds a Runner to a Workspace and an environment, and Session.Run
// is the single place where the fail-fast policy lives. Any non-zero exit is
// returned as an *ExecutionError carrying the command line and the merged
// stdout/stderr output, unless the command was marked Tolerant.
//
// Nothing is retried, and no timeout applies unless the Session sets one.
package runtime
