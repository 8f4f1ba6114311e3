// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import "github.com/tidwall/gjson"

// CommandResult is the outcome of one command within a batch.
//
// For json format the result holds the command-specific structured object;
// for text format it holds the raw CLI output already unwrapped from its
// {"output": ...} envelope.
type CommandResult struct {
	// Format is the output format the command ran with (json or text)
	Format string

	// raw is the verbatim result: a JSON object (json format) or the
	// plain CLI output text (text format)
	raw string
}

// GetValue retrieves a value from a json-format result using a gjson path.
// The path follows gjson syntax for querying JSON structures.
//
// Returns gjson.Result which can be converted to specific types:
//   - result.String() for string values
//   - result.Int() for integer values
//   - result.Bool() for boolean values
//   - result.Array() for array values
//
// For text-format results the zero gjson.Result is returned; use Text().
//
// Example:
//
//	res, err := client.Cli1(ctx, "show version")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	version := res.GetValue("version").String()
//	memTotal := res.GetValue("memTotal").Int()
func (r CommandResult) GetValue(path string) gjson.Result {
	if r.Format != FormatJSON {
		return gjson.Result{}
	}
	return gjson.Get(r.raw, path)
}

// Raw returns the verbatim result: the JSON object string for json format,
// or the CLI output text for text format.
func (r CommandResult) Raw() string {
	return r.raw
}

// Text returns the command's CLI output text.
//
// For text-format results this is the output itself. For json-format
// results it is the "output" field, which is present for commands the
// device renders as wrapped text even under json format; empty otherwise.
func (r CommandResult) Text() string {
	if r.Format == FormatText {
		return r.raw
	}
	return gjson.Get(r.raw, "output").String()
}

// newCommandResult transforms one raw wire-level result entry per the
// requested format: text unwraps the {"output": ...} envelope, json passes
// the structured object through unchanged.
func newCommandResult(raw gjson.Result, format string) CommandResult {
	if format == FormatText {
		return CommandResult{Format: format, raw: raw.Get("output").String()}
	}
	return CommandResult{Format: format, raw: raw.Raw}
}

// EnableResult pairs a command run through Enable with its result and the
// format it finally ran with (text when the sanctioned encoding fallback
// was taken).
type EnableResult struct {
	// Command is the CLI command that was executed
	Command string

	// Result is the command's outcome
	Result CommandResult

	// Format is the output format the result is encoded in
	Format string
}

// Facts holds version and model information parsed from "show version".
type Facts struct {
	// Version is the full software version string, e.g. "4.31.2F"
	Version string

	// VersionNumber is the leading numeric portion of Version, e.g. "4.31.2"
	VersionNumber string

	// Model is the 4-digit model number parsed from the model name, or the
	// full model name when no 4-digit run is present
	Model string
}
