// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// generatedSessionPrefix prefixes auto-generated session names
const generatedSessionPrefix = "go-eapi-"

// sessionTimerRegexp validates commit-timer values (hh:mm:ss)
var sessionTimerRegexp = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)

// loadErrorRegexp matches failure indications in copy-to-session messages
var loadErrorRegexp = regexp.MustCompile(`(?i)error|abort|invalid`)

// SessionState is the client-side view of a config session's lifecycle
//
// PendingCommit to Committed is server-driven: a confirming second commit
// within the timer window finalizes the session, while timer expiry
// auto-aborts it on the device with no synchronous signal to the client.
// Poll Status to observe expiry; the client-side state only tracks what
// this process has itself requested.
type SessionState int

const (
	// SessionActive means the session name is assigned and commands may
	// be pushed
	SessionActive SessionState = iota

	// SessionPendingCommit means a commit with a confirmation timer was
	// issued and awaits a confirming second commit
	SessionPendingCommit

	// SessionCommitted means the session was committed (terminal)
	SessionCommitted

	// SessionAborted means the session was aborted (terminal)
	SessionAborted
)

// String returns the state name
func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionPendingCommit:
		return "pending-commit"
	case SessionCommitted:
		return "committed"
	case SessionAborted:
		return "aborted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// SessionConfig drives one named configuration session: a server-side
// staging area for config changes with transaction-like commit and abort.
//
// All operations dispatch CLI batches scoped by the session's
// "configure session <name>" preamble. The session is owned by the client
// that created it; use one SessionConfig from one logical flow at a time,
// the library does not serialize concurrent mutation of the same session.
//
// Example:
//
//	session := client.ConfigSession("")
//	if err := session.Push(ctx, []string{"hostname sw1"}, false); err != nil {
//	    log.Fatal(err)
//	}
//	diff, _ := session.Diff(ctx)
//	fmt.Println(diff)
//	if err := session.Commit(ctx, ""); err != nil {
//	    log.Fatal(err)
//	}
type SessionConfig struct {
	client *Client
	name   string

	mu    sync.Mutex
	state SessionState
}

// ConfigSession creates a handle for a named configuration session
//
// An empty name generates a unique one. No command is sent to the device
// until the first operation; the server-side session springs into
// existence with the first push.
func (c *Client) ConfigSession(name string) *SessionConfig {
	if name == "" {
		name = generatedSessionPrefix + uuid.NewString()
	}
	return &SessionConfig{
		client: c,
		name:   name,
		state:  SessionActive,
	}
}

// Name returns the session's server-scoped name
func (s *SessionConfig) Name() string {
	return s.name
}

// State returns the client-side lifecycle state
//
// The device may have auto-aborted a pending commit whose timer expired;
// that is observable only via Status.
func (s *SessionConfig) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// preamble returns the config-mode command that scopes a batch to this
// session.
func (s *SessionConfig) preamble() string {
	return "configure session " + s.name
}

// checkOpen rejects operations on a session in a terminal state, locally,
// without a wire request.
func (s *SessionConfig) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionCommitted || s.state == SessionAborted {
		return fmt.Errorf("session %q is %s: %w", s.name, s.state, ErrSessionClosed)
	}
	return nil
}

// StatusAll returns the device-wide session table from
// "show configuration sessions detail".
func (s *SessionConfig) StatusAll(ctx context.Context) (gjson.Result, error) {
	results, err := s.client.runWithEnable(ctx, Commands("show configuration sessions detail"))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("session status: %w", err)
	}
	return gjson.Parse(results[0].Raw()), nil
}

// Status returns this session's sub-record from the device's session
// table, or a zero gjson.Result (Exists() == false) if the device has no
// session under this name. Absence is a lookup outcome, not an error.
//
// This is the only way to observe a server-side auto-abort after a
// commit-timer expiry.
func (s *SessionConfig) Status(ctx context.Context) (gjson.Result, error) {
	all, err := s.StatusAll(ctx)
	if err != nil {
		return gjson.Result{}, err
	}
	return all.Get("sessions").Map()[s.name], nil
}

// Push stages configuration commands in the session
//
// Empty lines are dropped. With replace, a "rollback clean-config"
// command is inserted immediately after the session preamble (index 1 of
// the dispatched batch) so the content fully replaces rather than merges
// with the already-staged config.
//
// Pushing to a committed or aborted session fails locally with
// ErrSessionClosed.
func (s *SessionConfig) Push(ctx context.Context, commands []string, replace bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	content := make([]string, 0, len(commands))
	for _, cmd := range commands {
		if strings.TrimSpace(cmd) == "" {
			continue
		}
		content = append(content, cmd)
	}
	if len(content) == 0 {
		return fmt.Errorf("session push: no commands to stage")
	}

	batch := make([]Command, 0, len(content)+2)
	batch = append(batch, Command{Cmd: s.preamble()})
	if replace {
		batch = append(batch, Command{Cmd: "rollback clean-config"})
	}
	batch = append(batch, Commands(content...)...)

	if _, err := s.client.runWithEnable(ctx, batch); err != nil {
		return fmt.Errorf("session push: %w", err)
	}

	// Staged state changed; parsed trees of any session view are stale
	s.client.sections.clear()
	return nil
}

// Commit commits the session's staged configuration
//
// Without a timer the commit is immediate and the session becomes
// terminal. With a timer value ("hh:mm:ss") the session enters
// pending-commit: a second Commit call with an empty timer before expiry
// confirms and finalizes it, while expiry without confirmation auto-aborts
// server-side (observable only via Status).
//
// On a successful final commit the client's cached configs are
// invalidated.
func (s *SessionConfig) Commit(ctx context.Context, timer string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if timer != "" && !sessionTimerRegexp.MatchString(timer) {
		return fmt.Errorf("session commit: invalid timer %q (expected hh:mm:ss)", timer)
	}

	command := s.preamble() + " commit"
	if timer != "" {
		command += " timer " + timer
	}

	if _, err := s.client.runWithEnable(ctx, Commands(command)); err != nil {
		return fmt.Errorf("session commit: %w", err)
	}

	s.mu.Lock()
	if timer != "" {
		s.state = SessionPendingCommit
	} else {
		s.state = SessionCommitted
	}
	s.mu.Unlock()

	// The running config changed (immediately, or provisionally until the
	// timer resolves)
	s.client.configChanged()
	return nil
}

// Abort discards the session's staged configuration and makes the session
// terminal. Aborting an already-terminal session fails locally with
// ErrSessionClosed.
func (s *SessionConfig) Abort(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.client.runWithEnable(ctx, Commands(s.preamble()+" abort")); err != nil {
		return fmt.Errorf("session abort: %w", err)
	}

	s.mu.Lock()
	s.state = SessionAborted
	s.mu.Unlock()

	// The running config is untouched; staged views are gone
	s.client.sections.clear()
	return nil
}

// Diff returns the unified-diff-style text between the running config and
// the session's staged config. An empty diff means no staged changes.
func (s *SessionConfig) Diff(ctx context.Context) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	results, err := s.client.runWithEnable(ctx,
		Commands("show session-config named "+s.name+" diffs"),
		Format(FormatText))
	if err != nil {
		return "", fmt.Errorf("session diff: %w", err)
	}
	return results[0].Text(), nil
}

// Write persists the running config to the startup config
//
// This is a device-level operation on the running config, deliberately not
// gated by session state: it applies what is committed, never the staged
// session content. Call it after a successful Commit to persist session
// changes.
func (s *SessionConfig) Write(ctx context.Context) error {
	if _, err := s.client.runWithEnable(ctx, Commands("write")); err != nil {
		return fmt.Errorf("session write: %w", err)
	}
	return nil
}

// LoadFile stages a configuration file from the device filesystem into
// the session ("copy <source> session-config")
//
// With replace, the staged config is cleaned first so the file fully
// replaces it. The copy command reports some failures as in-band messages
// rather than command errors; those are detected and returned as errors.
func (s *SessionConfig) LoadFile(ctx context.Context, source string, replace bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("session load: source file cannot be empty")
	}

	batch := make([]Command, 0, 3)
	batch = append(batch, Command{Cmd: s.preamble()})
	if replace {
		batch = append(batch, Command{Cmd: "rollback clean-config"})
	}
	batch = append(batch, Command{Cmd: "copy " + source + " session-config"})

	results, err := s.client.runWithEnable(ctx, batch)
	if err != nil {
		return fmt.Errorf("session load: %w", err)
	}

	// The copy result is the last entry; scan its messages for in-band
	// failures
	copyResult := results[len(results)-1]
	for _, msg := range copyResult.GetValue("messages").Array() {
		if loadErrorRegexp.MatchString(msg.String()) {
			return fmt.Errorf("session load: device reported: %s", strings.TrimSpace(msg.String()))
		}
	}

	s.client.sections.clear()
	return nil
}

// Facade session verbs: a lightweight session mode on the client itself,
// where Configure batches are scoped to a session until committed or
// aborted.

// EnterConfigSession puts the client in config-session mode
//
// Subsequent Configure calls stage their commands under
// "configure session <name>" instead of "configure terminal", until
// CommitSession or AbortSession ends the mode. An empty name generates a
// unique one. Returns the session name in use.
//
// Example:
//
//	name := client.EnterConfigSession("")
//	client.Configure(ctx, []string{"hostname sw1"})
//	diff, _ := client.SessionDiff(ctx)
//	fmt.Println(diff)
//	client.CommitSession(ctx)
func (c *Client) EnterConfigSession(name string) string {
	if name == "" {
		name = generatedSessionPrefix + uuid.NewString()
	}
	c.mu.Lock()
	c.sessionName = name
	c.mu.Unlock()
	return name
}

// InConfigSession reports whether the client is in config-session mode
func (c *Client) InConfigSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionName != ""
}

// CommitSession commits the client's current config session and leaves
// session mode. Returns ErrNoSession when the client is not in session
// mode.
func (c *Client) CommitSession(ctx context.Context) error {
	c.mu.RLock()
	name := c.sessionName
	c.mu.RUnlock()
	if name == "" {
		return fmt.Errorf("commit session: %w", ErrNoSession)
	}

	if _, err := c.runWithEnable(ctx, Commands("configure session "+name+" commit")); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	c.mu.Lock()
	c.sessionName = ""
	c.mu.Unlock()
	c.configChanged()
	return nil
}

// AbortSession aborts the client's current config session and leaves
// session mode. Returns ErrNoSession when the client is not in session
// mode.
func (c *Client) AbortSession(ctx context.Context) error {
	c.mu.RLock()
	name := c.sessionName
	c.mu.RUnlock()
	if name == "" {
		return fmt.Errorf("abort session: %w", ErrNoSession)
	}

	if _, err := c.runWithEnable(ctx, Commands("configure session "+name+" abort")); err != nil {
		return fmt.Errorf("abort session: %w", err)
	}

	c.mu.Lock()
	c.sessionName = ""
	c.mu.Unlock()
	c.sections.clear()
	return nil
}

// SessionDiff returns the staged-vs-running diff of the client's current
// config session. Returns ErrNoSession when the client is not in session
// mode.
func (c *Client) SessionDiff(ctx context.Context) (string, error) {
	c.mu.RLock()
	name := c.sessionName
	c.mu.RUnlock()
	if name == "" {
		return "", fmt.Errorf("session diff: %w", ErrNoSession)
	}

	results, err := c.runWithEnable(ctx,
		Commands("show session-config named "+name+" diffs"),
		Format(FormatText))
	if err != nil {
		return "", fmt.Errorf("session diff: %w", err)
	}
	return results[0].Text(), nil
}
