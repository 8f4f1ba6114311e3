// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MultilineMarker splits a flat command string into the command and its
// interactive input. Banner and SSL commands prompt for multi-line input;
// the marker lets callers keep such commands on a single line when reading
// configuration from a file:
//
//	banner login MULTILINE: Authorized access only.\nViolators will be logged.
const MultilineMarker = "MULTILINE:"

// Command is a single CLI command within a batch.
//
// Most commands are a bare Cmd string. Commands that prompt for additional
// input (banners, enable passwords) carry the reply in Input and are
// serialized as {"cmd": ..., "input": ...} objects on the wire.
type Command struct {
	// Cmd is the CLI command line
	Cmd string

	// Input is the reply to the command's interactive prompt, if any
	Input string
}

// MarshalJSON serializes a plain command as a bare string and a command
// with input as a cmd/input object, matching the eAPI wire format.
func (c Command) MarshalJSON() ([]byte, error) {
	if c.Input == "" {
		return json.Marshal(c.Cmd)
	}
	return json.Marshal(struct {
		Cmd   string `json:"cmd"`
		Input string `json:"input"`
	}{Cmd: c.Cmd, Input: c.Input})
}

// NewCommand creates a Command from a flat command string, splitting on
// MultilineMarker when present.
//
// Example:
//
//	eapi.NewCommand("show version")
//	// Command{Cmd: "show version"}
//
//	eapi.NewCommand("banner login MULTILINE: hello\nworld")
//	// Command{Cmd: "banner login ", Input: "hello\nworld\n"}
func NewCommand(cmd string) Command {
	if idx := strings.Index(cmd, MultilineMarker); idx >= 0 {
		return Command{
			Cmd:   cmd[:idx],
			Input: strings.TrimSpace(cmd[idx+len(MultilineMarker):]) + "\n",
		}
	}
	return Command{Cmd: cmd}
}

// Commands converts flat command strings into a batch, applying the
// MultilineMarker convention to each.
func Commands(cmds ...string) []Command {
	batch := make([]Command, 0, len(cmds))
	for _, cmd := range cmds {
		batch = append(batch, NewCommand(cmd))
	}
	return batch
}

// Req carries per-request options for one eAPI call
//
// This struct is populated via functional modifiers. The command batch is
// passed directly to methods.
//
// Example:
//
//	res, err := client.Cli(ctx, cmds,
//	    eapi.Format(eapi.FormatText),
//	    eapi.Timeout(30*time.Second))
type Req struct {
	// Format specifies the output format for all commands in the batch
	// Valid values: json (default), text
	Format string

	// AutoComplete enables the device's shorthand command expansion
	// ("sh ver" resolves to "show version"). Only sent when set.
	AutoComplete bool

	// ExpandAliases enables expansion of user-defined command aliases.
	// Only sent when set.
	ExpandAliases bool

	// RequestID is the JSON-RPC request id, for log correlation only.
	// Defaults to a random UUID when empty.
	RequestID string

	// Timeout is the request-specific timeout
	// Overrides the client default timeout if set
	Timeout time.Duration

	// Marker flags: the optional protocol members are only serialized
	// when the corresponding modifier was applied.
	autoCompleteSet  bool
	expandAliasesSet bool
}

// buildEnvelope assembles the JSON-RPC 2.0 request envelope for a command
// batch. Pure function: no I/O, no client state.
//
// Wire format:
//
//	{"jsonrpc":"2.0","method":"runCmds",
//	 "params":{"version":1,"cmds":[...],"format":"json"},
//	 "id":"..."}
//
// autoComplete and expandAliases appear in params only when their
// modifiers were applied.
//
// Returns an error if the batch is empty or the format is invalid; neither
// is ever sent over the wire.
func buildEnvelope(commands []Command, req *Req) (string, error) {
	if len(commands) == 0 {
		return "", fmt.Errorf("command batch cannot be empty")
	}
	if err := ValidateFormat(req.Format); err != nil {
		return "", err
	}

	cmds, err := json.Marshal(commands)
	if err != nil {
		return "", fmt.Errorf("marshal commands: %w", err)
	}

	body := Body{}.
		Set("jsonrpc", "2.0").
		Set("method", "runCmds").
		Set("params.version", 1).
		SetRaw("params.cmds", string(cmds)).
		Set("params.format", req.Format)

	if req.autoCompleteSet {
		body = body.Set("params.autoComplete", req.AutoComplete)
	}
	if req.expandAliasesSet {
		body = body.Set("params.expandAliases", req.ExpandAliases)
	}

	body = body.Set("id", req.RequestID)

	return body.String()
}
