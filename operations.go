// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Input validation constants
const (
	// MaxCommandLength is the maximum length for a single CLI command line
	MaxCommandLength = 8192
)

// Facts parsing expressions: the leading numeric run of the version string
// and the 4-digit model number embedded in the model name.
var (
	versionNumberRegexp = regexp.MustCompile(`^[\d.]+`)
	modelNumberRegexp   = regexp.MustCompile(`\d{4}`)
)

// validateCommands validates a command batch
//
// Checks:
//   - Batch is not empty
//   - Each command line is non-empty
//   - Each command length does not exceed MaxCommandLength
//   - Each command does not contain null bytes (injection)
//
// Returns an error if any command is invalid with a descriptive message.
func validateCommands(commands []Command) error {
	if len(commands) == 0 {
		return fmt.Errorf("command batch cannot be empty")
	}

	for i, cmd := range commands {
		if cmd.Cmd == "" {
			return fmt.Errorf("command cannot be empty (at index %d)", i)
		}

		if len(cmd.Cmd) > MaxCommandLength {
			return fmt.Errorf("command at index %d exceeds maximum length of %d characters", i, MaxCommandLength)
		}

		if strings.IndexByte(cmd.Cmd, 0) >= 0 {
			return fmt.Errorf("command at index %d contains null byte", i)
		}
	}

	return nil
}

// Cli executes a batch of CLI commands in one wire request
//
// Commands execute in order on the device; order is the only correlation
// key between request and response. On success the result list has exactly
// one entry per command, positionally aligned with the batch.
//
// If a command fails mid-batch the device stops there: the error is a
// *CommandError carrying the passed prefix with its outputs, the failing
// command, and the never-attempted suffix. HTTP-level failures surface as
// *TransportError (or the underlying connection error) unchanged; the RPC
// layer performs no retries.
//
// Context timeout follows priority:
//  1. Request-specific timeout (via Timeout modifier)
//  2. Context deadline (if already set)
//  3. Client.OperationTimeout (fallback default)
//
// Example:
//
//	res, err := client.Cli(ctx,
//	    eapi.Commands("show version", "show hostname"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res[1].GetValue("hostname").String())
func (c *Client) Cli(ctx context.Context, commands []Command, mods ...func(*Req)) ([]CommandResult, error) {
	// Validate batch before any I/O
	if err := validateCommands(commands); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}

	// Build request with default format
	req := &Req{
		Format: FormatJSON,
	}

	// Apply modifiers
	for _, mod := range mods {
		mod(req)
	}

	if err := ValidateFormat(req.Format); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}

	// Request id is for log correlation only; stable for the lifetime of
	// this call
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	if err := checkContextCancellation(ctx); err != nil {
		return nil, err
	}

	envelope, err := buildEnvelope(commands, req)
	if err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}

	// Log request with redacted body
	c.logger.Debug(ctx, "eAPI request",
		"host", c.Host,
		"id", req.RequestID,
		"commands", len(commands),
		"format", req.Format)
	c.logger.Debug(ctx, "eAPI request body",
		"id", req.RequestID,
		"body", c.prepareJSONForLogging(envelope))

	// Apply operation timeout
	opCtx, cancel := c.createOperationContext(ctx, req)
	defer cancel()

	raw, err := c.transport.Post(opCtx, CommandAPIPath, []byte(envelope))
	if err != nil {
		c.logger.Error(ctx, "eAPI request failed",
			"host", c.Host,
			"id", req.RequestID,
			"error", err.Error())
		return nil, fmt.Errorf("cli: %w", err)
	}

	c.logger.Debug(ctx, "eAPI response body",
		"id", req.RequestID,
		"body", c.prepareJSONForLogging(string(raw)))

	results, err := reduceResponse(commands, req.Format, string(raw))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			c.logger.Error(ctx, "eAPI command failed",
				"host", c.Host,
				"id", req.RequestID,
				"failed", cmdErr.Failed,
				"errmsg", cmdErr.ErrMsg,
				"passed", len(cmdErr.Passed),
				"not_executed", len(cmdErr.NotExec))
		}
		return nil, err
	}

	return results, nil
}

// Cli1 executes a single CLI command and returns its lone result unwrapped
// from the batch list.
//
// On failure the full structured error is returned, identical to Cli.
//
// Example:
//
//	res, err := client.Cli1(ctx, "show version")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.GetValue("version").String())
func (c *Client) Cli1(ctx context.Context, command string, mods ...func(*Req)) (CommandResult, error) {
	results, err := c.Cli(ctx, Commands(command), mods...)
	if err != nil {
		return CommandResult{}, err
	}
	return results[0], nil
}

// reduceResponse maps the wire-level JSON-RPC response back onto ordered
// per-command outcomes.
//
// A response with an "error" member reports at most one failing command:
// the error payload's "data" array of length N holds the results of the
// N-1 commands that succeeded, in order, followed by the failure detail
// for commands[N-1]. Commands at index >= N were never attempted. The
// invariant len(passed) + 1 + len(notExec) == len(commands) always holds.
func reduceResponse(commands []Command, format string, body string) ([]CommandResult, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("cli: invalid JSON in response body")
	}
	parsed := gjson.Parse(body)

	if errData := parsed.Get("error"); errData.Exists() {
		data := errData.Get("data").Array()
		errAt := len(data) - 1
		if errAt < 0 || errAt >= len(commands) {
			return nil, fmt.Errorf("cli: malformed error response: data length %d for %d commands",
				len(data), len(commands))
		}

		passed := make([]CommandResult, 0, errAt)
		for i := 0; i < errAt; i++ {
			passed = append(passed, newCommandResult(data[i], format))
		}

		var details []string
		for _, msg := range data[errAt].Get("errors").Array() {
			details = append(details, msg.String())
		}

		notExec := make([]string, 0, len(commands)-errAt-1)
		for _, cmd := range commands[errAt+1:] {
			notExec = append(notExec, cmd.Cmd)
		}

		return nil, &CommandError{
			Failed:  commands[errAt].Cmd,
			ErrMsg:  errData.Get("message").String(),
			Code:    int(errData.Get("code").Int()),
			Errors:  details,
			Passed:  passed,
			NotExec: notExec,
		}
	}

	results := parsed.Get("result").Array()
	if len(results) != len(commands) {
		return nil, fmt.Errorf("cli: response carries %d results for %d commands",
			len(results), len(commands))
	}

	out := make([]CommandResult, 0, len(results))
	for _, result := range results {
		out = append(out, newCommandResult(result, format))
	}
	return out, nil
}

// runWithEnable dispatches a batch with the "enable" privilege-escalation
// command prepended and its result popped from the response. When an
// enable password is configured it rides as the command's input.
//
// On a mid-batch failure the *CommandError reflects the dispatched batch,
// enable command included.
func (c *Client) runWithEnable(ctx context.Context, commands []Command, mods ...func(*Req)) ([]CommandResult, error) {
	c.mu.RLock()
	pwd := c.enablePasswd
	c.mu.RUnlock()

	batch := make([]Command, 0, len(commands)+1)
	batch = append(batch, Command{Cmd: "enable", Input: pwd})
	batch = append(batch, commands...)

	results, err := c.Cli(ctx, batch, mods...)
	if err != nil {
		return nil, err
	}

	// Pop the enable command's result
	return results[1:], nil
}

// Enable sends commands to the device in enable (executive) mode
//
// The "enable" command is prepended automatically (disable via
// SendEnable(false)); its result is stripped from the output.
//
// In the default non-strict mode commands run one by one, and a command
// the device cannot encode as JSON is retried once in text format - the
// library's only sanctioned internal retry. In strict mode the whole list
// runs as a single batch with all-or-nothing semantics and no fallback.
//
// Configuration-mode commands are rejected; use Configure or a config
// session instead.
//
// Example:
//
//	results, err := client.Enable(ctx,
//	    []string{"show version", "show ip route"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("%s ran with %s encoding\n", r.Command, r.Format)
//	}
func (c *Client) Enable(ctx context.Context, commands []string, mods ...func(*EnableReq)) ([]EnableResult, error) {
	req := &EnableReq{
		Format:     FormatJSON,
		SendEnable: true,
	}
	for _, mod := range mods {
		mod(req)
	}

	if err := ValidateFormat(req.Format); err != nil {
		return nil, fmt.Errorf("enable: %w", err)
	}
	if len(commands) == 0 {
		return nil, fmt.Errorf("enable: command batch cannot be empty")
	}
	for _, cmd := range commands {
		if cmd == "configure" || strings.HasPrefix(cmd, "configure ") {
			return nil, fmt.Errorf("enable: config mode commands not supported")
		}
	}

	run := func(cmds []Command, format string) ([]CommandResult, error) {
		if req.SendEnable {
			return c.runWithEnable(ctx, cmds, Format(format))
		}
		return c.Cli(ctx, cmds, Format(format))
	}

	if req.Strict {
		results, err := run(Commands(commands...), req.Format)
		if err != nil {
			return nil, err
		}
		out := make([]EnableResult, 0, len(results))
		for i, result := range results {
			out = append(out, EnableResult{
				Command: commands[i],
				Result:  result,
				Format:  req.Format,
			})
		}
		return out, nil
	}

	out := make([]EnableResult, 0, len(commands))
	for _, cmd := range commands {
		results, err := run(Commands(cmd), req.Format)
		if err != nil {
			var cmdErr *CommandError
			if errors.As(err, &cmdErr) && cmdErr.CanRetryText() && req.Format == FormatJSON {
				// The one sanctioned internal retry: the device reported
				// this command has no JSON encoding
				c.logger.Debug(ctx, "command has no JSON encoding, retrying in text format",
					"command", cmd)
				results, err = run(Commands(cmd), FormatText)
				if err != nil {
					return nil, err
				}
				out = append(out, EnableResult{
					Command: cmd,
					Result:  results[0],
					Format:  FormatText,
				})
				continue
			}
			return nil, err
		}
		out = append(out, EnableResult{
			Command: cmd,
			Result:  results[0],
			Format:  req.Format,
		})
	}
	return out, nil
}

// Configure sends configuration commands to the device
//
// The commands are prefixed with "configure terminal", or with
// "configure session <name>" while the client is in config-session mode
// (see EnterConfigSession). The prefix command's result is stripped from
// the output.
//
// After a successful batch the memoized section trees are invalidated;
// with AutoRefresh the cached configs are dropped as well.
//
// Example:
//
//	_, err := client.Configure(ctx, []string{
//	    "interface Ethernet1",
//	    "  description uplink",
//	})
func (c *Client) Configure(ctx context.Context, commands []string, mods ...func(*Req)) ([]CommandResult, error) {
	c.mu.RLock()
	session := c.sessionName
	c.mu.RUnlock()

	prefix := "configure terminal"
	if session != "" {
		prefix = "configure session " + session
	}

	results, err := c.configureWith(ctx, prefix, commands, mods...)
	if err != nil {
		return nil, err
	}

	if session != "" {
		// Staged changes do not alter the running config, but any parsed
		// trees of the session's view are stale
		c.sections.clear()
	} else {
		c.configChanged()
	}

	return results, nil
}

// configureWith dispatches commands under a config-mode prefix and pops
// the prefix result.
func (c *Client) configureWith(ctx context.Context, prefix string, commands []string, mods ...func(*Req)) ([]CommandResult, error) {
	if len(commands) == 0 {
		return nil, fmt.Errorf("config: command batch cannot be empty")
	}

	batch := make([]Command, 0, len(commands)+1)
	batch = append(batch, Command{Cmd: prefix})
	batch = append(batch, Commands(commands...)...)

	results, err := c.runWithEnable(ctx, batch, mods...)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// Pop the config-mode prefix result
	return results[1:], nil
}

// GetConfig retrieves a named config from the device as text
//
// The config name must be RunningConfigName or StartupConfigName; params
// are appended to the show command verbatim (e.g. "all", "section bgp").
//
// Example:
//
//	text, err := client.GetConfig(ctx, eapi.RunningConfigName, "section ntp")
func (c *Client) GetConfig(ctx context.Context, config string, params string) (string, error) {
	if config != RunningConfigName && config != StartupConfigName {
		return "", fmt.Errorf("get config: invalid config name %q (must be %q or %q)",
			config, RunningConfigName, StartupConfigName)
	}

	command := "show " + config
	if params != "" {
		command += " " + params
	}

	results, err := c.runWithEnable(ctx, Commands(command), Format(FormatText))
	if err != nil {
		return "", fmt.Errorf("get config: %w", err)
	}

	return strings.TrimSpace(results[0].Text()), nil
}

// RunningConfig returns the device's running configuration, fetching it on
// first use and serving the cached text afterwards
//
// The fetch honors the ConfigDefaults option ("show running-config all").
// Refresh drops the cache; with AutoRefresh (default) configuration
// changes drop it automatically. There is no implicit blocking property
// read: every call site passes a context and the fetch is explicit.
func (c *Client) RunningConfig(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.haveRunning {
		text := c.runningConfig
		c.mu.RUnlock()
		return text, nil
	}
	c.mu.RUnlock()

	params := ""
	if c.ConfigDefaults {
		params = "all"
	}
	text, err := c.GetConfig(ctx, RunningConfigName, params)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.runningConfig = text
	c.haveRunning = true
	c.mu.Unlock()

	return text, nil
}

// StartupConfig returns the device's startup configuration, fetching it on
// first use and serving the cached text afterwards. See RunningConfig.
func (c *Client) StartupConfig(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.haveStartup {
		text := c.startupConfig
		c.mu.RUnlock()
		return text, nil
	}
	c.mu.RUnlock()

	text, err := c.GetConfig(ctx, StartupConfigName, "")
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.startupConfig = text
	c.haveStartup = true
	c.mu.Unlock()

	return text, nil
}

// Facts returns version and model information parsed from "show version",
// fetching on first use and serving the cached value afterwards
//
// Refresh drops the cache. VersionNumber is the leading numeric run of
// the version string; Model is the 4-digit model number when the model
// name contains one, the full model name otherwise.
//
// Example:
//
//	facts, err := client.Facts(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s running %s\n", facts.Model, facts.Version)
func (c *Client) Facts(ctx context.Context) (Facts, error) {
	c.mu.RLock()
	if c.facts != nil {
		facts := *c.facts
		c.mu.RUnlock()
		return facts, nil
	}
	c.mu.RUnlock()

	results, err := c.runWithEnable(ctx, Commands("show version"))
	if err != nil {
		return Facts{}, fmt.Errorf("facts: %w", err)
	}
	res := results[0]

	version := res.GetValue("version").String()
	facts := Facts{
		Version:       version,
		VersionNumber: version,
	}
	if m := versionNumberRegexp.FindString(version); m != "" {
		facts.VersionNumber = m
	}

	modelName := res.GetValue("modelName").String()
	facts.Model = modelName
	if m := modelNumberRegexp.FindString(modelName); m != "" {
		facts.Model = m
	}

	c.mu.Lock()
	cached := facts
	c.facts = &cached
	c.mu.Unlock()

	return facts, nil
}

// createOperationContext creates the context for one operation with timeout
//
// Timeout priority model:
//  1. Request-specific timeout (req.Timeout > 0) - highest priority
//  2. Existing context deadline - medium priority
//  3. Client default timeout (c.OperationTimeout) - fallback
//
// The caller must invoke the returned cancel function when the operation
// completes.
func (c *Client) createOperationContext(ctx context.Context, req *Req) (context.Context, context.CancelFunc) {
	// Priority 1: request-specific timeout
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}

	// Priority 2: existing context deadline
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		// Return context with cancel to maintain consistent API
		return context.WithCancel(ctx)
	}

	// Priority 3: client default timeout
	return context.WithTimeout(ctx, c.OperationTimeout)
}
