// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import "fmt"

// Output format constants for eAPI command execution
const (
	// FormatJSON requests structured, command-specific JSON output (default)
	FormatJSON = "json"

	// FormatText requests the raw CLI text output of each command
	//
	// Some show commands have no JSON rendering and only work in text
	// format, e.g. "show session-config named <name> diffs".
	FormatText = "text"
)

// ValidFormats contains the list of valid output format values
var ValidFormats = []string{
	FormatJSON,
	FormatText,
}

// ValidateFormat checks if the output format is valid
//
// Returns an error if the format is not one of the supported values.
//
// Example:
//
//	if err := eapi.ValidateFormat("text"); err != nil {
//	    log.Fatal(err)
//	}
func ValidateFormat(format string) error {
	for _, valid := range ValidFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s (valid values: json, text)", format)
}
