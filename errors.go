// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"errors"
	"fmt"
)

// codeUnconvertible is the device error code signaling that a command's
// output has no JSON encoding. The numeric value is vendor-defined and is
// never pattern-matched outside CanRetryText.
const codeUnconvertible = 1003

// Sentinel errors returned by lookup and session operations.
var (
	// ErrSectionNotFound is returned by Section when no config section
	// header matches the given expression.
	ErrSectionNotFound = errors.New("config section not found")

	// ErrSessionClosed is returned when an operation is attempted on a
	// session that has already been committed or aborted.
	ErrSessionClosed = errors.New("config session already committed or aborted")

	// ErrNoSession is returned by session-scoped facade operations when the
	// client has not entered a config session.
	ErrNoSession = errors.New("not currently in a config session")

	// ErrUnknownExtension is returned by API when no extension is
	// registered under the requested name.
	ErrUnknownExtension = errors.New("unknown API extension")
)

// CommandError reports a batch that failed mid-execution on the device.
//
// The device stops at the first failing command: the prefix of the batch
// completed, one command failed, and the rest were never attempted. The
// struct carries enough context for a caller to resume from the failure
// point:
//
//	len(Passed) + 1 + len(NotExec) == len(batch)
//
// Example:
//
//	_, err := client.Cli(ctx, cmds)
//	var cmdErr *eapi.CommandError
//	if errors.As(err, &cmdErr) {
//	    log.Printf("failed %q after %d commands: %s",
//	        cmdErr.Failed, len(cmdErr.Passed), cmdErr.ErrMsg)
//	}
type CommandError struct {
	// Failed is the command at which execution stopped
	Failed string

	// ErrMsg is the device's description of the failure
	ErrMsg string

	// Code is the device's numeric error code
	Code int

	// Errors contains the device's per-line detail messages for the
	// failing command
	Errors []string

	// Passed contains the results of the commands that completed before
	// the failure, in execution order
	Passed []CommandResult

	// NotExec lists the commands that were never attempted
	NotExec []string
}

// Error implements the error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("eapi: command %q failed: %s (passed: %d, not executed: %d)",
		e.Failed, e.ErrMsg, len(e.Passed), len(e.NotExec))
}

// CanRetryText reports whether the failure was an encoding limitation
// rather than a command error: the device accepted the command but could
// not represent its output as JSON. Such commands succeed with text format.
//
// This is the opaque "encoding-unsupported" signal used by non-strict
// Enable to decide on its single sanctioned text-mode retry.
func (e *CommandError) CanRetryText() bool {
	return e.Code == codeUnconvertible
}

// TransportError reports an HTTP-level failure from the transport binding:
// the device answered with a non-2xx status, or the response body could not
// be read. Connection-level failures (refused, TLS, timeout) surface as the
// transport's underlying error instead.
//
// Transport errors are never retried by the RPC layer; the default
// transport's own retry policy (see MaxRetries) applies before one is
// surfaced.
type TransportError struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Status is the HTTP status line
	Status string

	// Body is a truncated copy of the response body, for diagnostics
	Body string
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("eapi: transport failed: %s", e.Status)
}

// TransientStatus defines a pattern for detecting transient HTTP failures
// that the default transport may retry
type TransientStatus struct {
	// StatusCode is the HTTP status code to match
	StatusCode int
}

// TransientStatuses defines the HTTP status codes the default transport
// treats as transient and retries with backoff.
//
// These statuses are typically caused by temporary conditions:
//   - 429 Too Many Requests: the management plane is rate limiting
//   - 502 Bad Gateway / 503 Service Unavailable: eAPI agent restarting
//   - 504 Gateway Timeout: slow control plane
//
// NOTE: 401/403 are intentionally excluded; retrying bad credentials only
// locks accounts. 500 is excluded as a catch-all that includes permanent
// failures.
var TransientStatuses = []TransientStatus{
	{StatusCode: 429},
	{StatusCode: 502},
	{StatusCode: 503},
	{StatusCode: 504},
}

// isTransientStatus reports whether an HTTP status code matches a
// transient pattern.
func isTransientStatus(code int) bool {
	for _, pattern := range TransientStatuses {
		if pattern.StatusCode == code {
			return true
		}
	}
	return false
}
