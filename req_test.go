// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

// TestNewCommand tests the multiline marker convention
func TestNewCommand(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCmd   string
		wantInput string
	}{
		{
			name:      "plain command",
			input:     "show version",
			wantCmd:   "show version",
			wantInput: "",
		},
		{
			name:      "banner with multiline input",
			input:     "banner login MULTILINE: Authorized access only.\nViolators will be logged.",
			wantCmd:   "banner login ",
			wantInput: "Authorized access only.\nViolators will be logged.\n",
		},
		{
			name:      "multiline input is trimmed and newline terminated",
			input:     "banner motd MULTILINE:   hello  ",
			wantCmd:   "banner motd ",
			wantInput: "hello\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(tt.input)
			if cmd.Cmd != tt.wantCmd {
				t.Errorf("Cmd = %q, want %q", cmd.Cmd, tt.wantCmd)
			}
			if cmd.Input != tt.wantInput {
				t.Errorf("Input = %q, want %q", cmd.Input, tt.wantInput)
			}
		})
	}
}

// TestCommandMarshalJSON tests wire serialization of commands
func TestCommandMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "plain command serializes as bare string",
			cmd:  Command{Cmd: "show version"},
			want: `"show version"`,
		},
		{
			name: "command with input serializes as object",
			cmd:  Command{Cmd: "enable", Input: "secret"},
			want: `{"cmd":"enable","input":"secret"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.MarshalJSON()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestBuildEnvelope tests JSON-RPC envelope assembly
func TestBuildEnvelope(t *testing.T) {
	t.Run("basic envelope", func(t *testing.T) {
		req := &Req{Format: FormatJSON, RequestID: "req-1"}
		envelope, err := buildEnvelope(Commands("show version", "show hostname"), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := gjson.Get(envelope, "jsonrpc").String(); got != "2.0" {
			t.Errorf("jsonrpc = %q, want 2.0", got)
		}
		if got := gjson.Get(envelope, "method").String(); got != "runCmds" {
			t.Errorf("method = %q, want runCmds", got)
		}
		if got := gjson.Get(envelope, "params.version").Int(); got != 1 {
			t.Errorf("params.version = %d, want 1", got)
		}
		if got := gjson.Get(envelope, "params.format").String(); got != "json" {
			t.Errorf("params.format = %q, want json", got)
		}
		if got := gjson.Get(envelope, "id").String(); got != "req-1" {
			t.Errorf("id = %q, want req-1", got)
		}

		cmds := gjson.Get(envelope, "params.cmds").Array()
		if len(cmds) != 2 {
			t.Fatalf("expected 2 commands, got %d", len(cmds))
		}
		if cmds[0].String() != "show version" || cmds[1].String() != "show hostname" {
			t.Errorf("commands out of order: %v", cmds)
		}
	})

	t.Run("command with input", func(t *testing.T) {
		req := &Req{Format: FormatJSON, RequestID: "req-2"}
		batch := []Command{{Cmd: "enable", Input: "secret"}, {Cmd: "show version"}}
		envelope, err := buildEnvelope(batch, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := gjson.Get(envelope, "params.cmds.0.cmd").String(); got != "enable" {
			t.Errorf("cmds.0.cmd = %q, want enable", got)
		}
		if got := gjson.Get(envelope, "params.cmds.0.input").String(); got != "secret" {
			t.Errorf("cmds.0.input = %q, want secret", got)
		}
		if got := gjson.Get(envelope, "params.cmds.1").String(); got != "show version" {
			t.Errorf("cmds.1 = %q, want show version", got)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		req := &Req{Format: FormatJSON}
		_, err := buildEnvelope(nil, req)
		if err == nil {
			t.Fatal("expected error for empty batch")
		}
		if !strings.Contains(err.Error(), "empty") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid format rejected", func(t *testing.T) {
		req := &Req{Format: "xml"}
		_, err := buildEnvelope(Commands("show version"), req)
		if err == nil {
			t.Fatal("expected error for invalid format")
		}
	})

	t.Run("optional members absent by default", func(t *testing.T) {
		req := &Req{Format: FormatJSON, RequestID: "req-3"}
		envelope, err := buildEnvelope(Commands("show version"), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gjson.Get(envelope, "params.autoComplete").Exists() {
			t.Error("autoComplete should be absent unless its modifier was applied")
		}
		if gjson.Get(envelope, "params.expandAliases").Exists() {
			t.Error("expandAliases should be absent unless its modifier was applied")
		}
	})

	t.Run("optional members present when set", func(t *testing.T) {
		req := &Req{Format: FormatJSON, RequestID: "req-4"}
		AutoComplete(true)(req)
		ExpandAliases(false)(req)

		envelope, err := buildEnvelope(Commands("sh ver"), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := gjson.Get(envelope, "params.autoComplete"); !got.Exists() || !got.Bool() {
			t.Error("expected autoComplete=true in params")
		}
		if got := gjson.Get(envelope, "params.expandAliases"); !got.Exists() || got.Bool() {
			t.Error("expected expandAliases=false in params")
		}
	})
}

// TestRequestModifiers tests the request modifier functions
func TestRequestModifiers(t *testing.T) {
	req := &Req{Format: FormatJSON}

	Format(FormatText)(req)
	if req.Format != FormatText {
		t.Errorf("Format modifier: got %q, want text", req.Format)
	}

	Format("")(req)
	if req.Format != FormatText {
		t.Error("empty format should not override")
	}

	RequestID("my-id")(req)
	if req.RequestID != "my-id" {
		t.Errorf("RequestID modifier: got %q", req.RequestID)
	}

	AutoComplete(true)(req)
	if !req.AutoComplete || !req.autoCompleteSet {
		t.Error("AutoComplete modifier should set value and marker")
	}

	ExpandAliases(true)(req)
	if !req.ExpandAliases || !req.expandAliasesSet {
		t.Error("ExpandAliases modifier should set value and marker")
	}
}

// TestValidateFormat tests output format validation
func TestValidateFormat(t *testing.T) {
	for _, format := range ValidFormats {
		if err := ValidateFormat(format); err != nil {
			t.Errorf("ValidateFormat(%q) = %v, want nil", format, err)
		}
	}
	if err := ValidateFormat("xml"); err == nil {
		t.Error("ValidateFormat(xml) should fail")
	}
	if err := ValidateFormat(""); err == nil {
		t.Error("ValidateFormat of empty string should fail")
	}
}
