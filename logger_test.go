// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

// captureLogOutput redirects the standard logger during a test.
func captureLogOutput(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)
	fn()
	return buf.String()
}

// TestDefaultLoggerLevels tests level filtering
func TestDefaultLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("debug level logs everything", func(t *testing.T) {
		logger := NewDefaultLogger(LogLevelDebug)
		out := captureLogOutput(t, func() {
			logger.Debug(ctx, "debug msg")
			logger.Info(ctx, "info msg")
			logger.Warn(ctx, "warn msg")
			logger.Error(ctx, "error msg")
		})
		for _, want := range []string{"[DEBUG] debug msg", "[INFO] info msg", "[WARN] warn msg", "[ERROR] error msg"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
	})

	t.Run("warn level suppresses debug and info", func(t *testing.T) {
		logger := NewDefaultLogger(LogLevelWarn)
		out := captureLogOutput(t, func() {
			logger.Debug(ctx, "debug msg")
			logger.Info(ctx, "info msg")
			logger.Warn(ctx, "warn msg")
		})
		if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
			t.Errorf("suppressed levels leaked: %q", out)
		}
		if !strings.Contains(out, "warn msg") {
			t.Errorf("warn missing: %q", out)
		}
	})

	t.Run("none level suppresses everything", func(t *testing.T) {
		logger := NewDefaultLogger(LogLevelNone)
		out := captureLogOutput(t, func() {
			logger.Error(ctx, "error msg")
		})
		if strings.Contains(out, "error msg") {
			t.Errorf("LogLevelNone leaked: %q", out)
		}
	})
}

// TestDefaultLoggerKeyValues tests structured pair formatting
func TestDefaultLoggerKeyValues(t *testing.T) {
	logger := NewDefaultLogger(LogLevelInfo)
	out := captureLogOutput(t, func() {
		logger.Info(context.Background(), "request", "host", "switch1", "commands", 3)
	})
	if !strings.Contains(out, "host=switch1") {
		t.Errorf("output missing host pair: %q", out)
	}
	if !strings.Contains(out, "commands=3") {
		t.Errorf("output missing commands pair: %q", out)
	}

	// Odd-length pair list marks the missing value
	out = captureLogOutput(t, func() {
		logger.Info(context.Background(), "request", "orphan")
	})
	if !strings.Contains(out, "orphan=<MISSING>") {
		t.Errorf("output missing placeholder: %q", out)
	}
}

// TestSanitizeLogValue tests log injection neutralization
func TestSanitizeLogValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "plain string",
			input: "show version",
			want:  "show version",
		},
		{
			name:  "newline injection",
			input: "line1\nFAKE LOG ENTRY",
			want:  "line1 FAKE LOG ENTRY",
		},
		{
			name:  "carriage return",
			input: "a\rb",
			want:  "a b",
		},
		{
			name:  "ANSI escape",
			input: "a\x1b[31mred",
			want:  "a.[31mred",
		},
		{
			name:  "non-string value",
			input: 42,
			want:  "42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("truncates long values", func(t *testing.T) {
		long := strings.Repeat("a", MaxLogValueLength+100)
		got := sanitizeLogValue(long)
		if !strings.HasSuffix(got, "...[TRUNCATED]") {
			t.Error("expected truncation marker")
		}
		if len(got) > MaxLogValueLength+len("...[TRUNCATED]") {
			t.Errorf("value not truncated: %d bytes", len(got))
		}
	})
}

// TestLogLevelString tests level names
func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevelNone, "NONE"},
		{LogLevel(42), "UNKNOWN(42)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

// TestNoOpLogger tests that the no-op logger discards everything
func TestNoOpLogger(t *testing.T) {
	logger := &NoOpLogger{}
	out := captureLogOutput(t, func() {
		logger.Debug(context.Background(), "msg")
		logger.Info(context.Background(), "msg")
		logger.Warn(context.Background(), "msg")
		logger.Error(context.Background(), "msg")
	})
	if out != "" {
		t.Errorf("NoOpLogger produced output: %q", out)
	}
}
