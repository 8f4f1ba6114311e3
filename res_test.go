// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"testing"

	"github.com/tidwall/gjson"
)

// TestCommandResultGetValue tests structured result querying
func TestCommandResultGetValue(t *testing.T) {
	res := newCommandResult(gjson.Parse(`{"version":"4.31.2F","memTotal":8099732}`), FormatJSON)

	if got := res.GetValue("version").String(); got != "4.31.2F" {
		t.Errorf("version = %q", got)
	}
	if got := res.GetValue("memTotal").Int(); got != 8099732 {
		t.Errorf("memTotal = %d", got)
	}
	if res.GetValue("missing").Exists() {
		t.Error("missing path should not exist")
	}
}

// TestCommandResultText tests text extraction per format
func TestCommandResultText(t *testing.T) {
	t.Run("text format unwraps output", func(t *testing.T) {
		res := newCommandResult(gjson.Parse(`{"output":"Hostname: sw1\n"}`), FormatText)
		if got := res.Text(); got != "Hostname: sw1\n" {
			t.Errorf("Text() = %q", got)
		}
		if got := res.Raw(); got != "Hostname: sw1\n" {
			t.Errorf("Raw() = %q", got)
		}
	})

	t.Run("json format passes object through", func(t *testing.T) {
		res := newCommandResult(gjson.Parse(`{"hostname":"sw1"}`), FormatJSON)
		if got := res.GetValue("hostname").String(); got != "sw1" {
			t.Errorf("hostname = %q", got)
		}
		if res.Text() != "" {
			t.Errorf("Text() = %q, want empty for structured result", res.Text())
		}
	})

	t.Run("json format with wrapped text output", func(t *testing.T) {
		res := newCommandResult(gjson.Parse(`{"output":"wrapped\n"}`), FormatJSON)
		if got := res.Text(); got != "wrapped\n" {
			t.Errorf("Text() = %q", got)
		}
	})

	t.Run("GetValue on text result returns zero value", func(t *testing.T) {
		res := newCommandResult(gjson.Parse(`{"output":"raw"}`), FormatText)
		if res.GetValue("anything").Exists() {
			t.Error("GetValue on text-format result should return the zero result")
		}
	})
}
