// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import "time"

// Client configuration options using the functional options pattern

// Username sets the username for HTTP basic authentication
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the password for HTTP basic authentication
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// EnablePassword sets the privilege-escalation password supplied as input
// to the auto-prepended "enable" command. Equivalent to calling
// EnableAuthentication after construction.
func EnablePassword(password string) func(*Client) {
	return func(c *Client) {
		c.enablePasswd = password
	}
}

// Protocol sets the transport scheme, "https" (default) or "http"
//
// WARNING: Plain HTTP transmits credentials and configuration in clear
// text. Only use it in isolated testing environments.
func Protocol(proto string) func(*Client) {
	return func(c *Client) {
		c.Protocol = proto
	}
}

// Port sets the eAPI port (default: 443 for https, 80 for http)
func Port(port int) func(*Client) {
	return func(c *Client) {
		c.Port = port
	}
}

// VerifyCertificate enables or disables TLS certificate verification
// (default: false)
//
// eAPI endpoints commonly run with self-signed certificates, so
// verification is off by default. Enable it whenever the device carries a
// certificate your CA bundle can validate.
//
// Example:
//
//	client, _ := eapi.NewClient("192.168.1.1",
//	    eapi.Username("admin"),
//	    eapi.Password("secret"),
//	    eapi.VerifyCertificate(true))
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// OperationTimeout sets the default per-operation timeout (default: 30s)
func OperationTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = duration
	}
}

// MaxRetries sets the maximum number of transport retry attempts for
// transient errors (default: 3). Zero disables transport retries entirely.
func MaxRetries(retries int) func(*Client) {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// BackoffMinDelay sets the minimum transport backoff delay (default: 1s)
func BackoffMinDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMinDelay = duration
	}
}

// BackoffMaxDelay sets the maximum transport backoff delay (default: 60s)
func BackoffMaxDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMaxDelay = duration
	}
}

// BackoffDelayFactor sets the backoff multiplication factor (default: 2.0)
func BackoffDelayFactor(factor float64) func(*Client) {
	return func(c *Client) {
		c.BackoffDelayFactor = factor
	}
}

// AutoRefresh controls whether cached configs are dropped after
// configuration-changing operations (default: true)
//
// With AutoRefresh disabled only the parsed section trees are invalidated;
// RunningConfig and StartupConfig keep returning the cached text until
// Refresh is called explicitly.
func AutoRefresh(enabled bool) func(*Client) {
	return func(c *Client) {
		c.AutoRefresh = enabled
	}
}

// ConfigDefaults controls whether running-config is fetched with default
// values included ("show running-config all", default: true)
func ConfigDefaults(enabled bool) func(*Client) {
	return func(c *Client) {
		c.ConfigDefaults = enabled
	}
}

// WithTransport substitutes the transport binding
//
// The default transport posts over HTTP(S) with basic auth. Substituting a
// Transport decouples protocol semantics from transport internals and is
// the supported way to test against fake devices.
func WithTransport(transport Transport) func(*Client) {
	return func(c *Client) {
		if transport != nil {
			c.transport = transport
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// Use this option to enable logging with DefaultLogger or a custom logger.
//
// All JSON content logged at Debug level is automatically redacted to remove
// sensitive data (passwords, secrets, keys, tokens).
//
// Example:
//
//	logger := eapi.NewDefaultLogger(eapi.LogLevelInfo)
//	client, _ := eapi.NewClient("192.168.1.1",
//	    eapi.Username("admin"),
//	    eapi.Password("secret"),
//	    eapi.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in logs
//
// When enabled, JSON content in debug logs is formatted for better
// readability. This only affects Debug-level log output.
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// Request modifiers for individual operations

// Format returns a request modifier that sets the output format for all
// commands in the batch.
//
// Valid formats: json (default), text
//
// Example:
//
//	res, err := client.Cli1(ctx, "show running-config",
//	    eapi.Format(eapi.FormatText))
func Format(format string) func(*Req) {
	return func(req *Req) {
		if format != "" {
			req.Format = format
		}
	}
}

// AutoComplete returns a request modifier that enables or disables the
// device's shorthand command expansion for the batch.
//
// With autoComplete enabled, "sh ver" resolves to "show version". The
// parameter is only serialized into the envelope when this modifier is
// applied.
func AutoComplete(enabled bool) func(*Req) {
	return func(req *Req) {
		req.AutoComplete = enabled
		req.autoCompleteSet = true
	}
}

// ExpandAliases returns a request modifier that enables or disables
// expansion of user-defined command aliases for the batch.
//
// With expandAliases enabled, an alias configured as "sv" for
// "show version" can be sent through the API. The parameter is only
// serialized into the envelope when this modifier is applied.
func ExpandAliases(enabled bool) func(*Req) {
	return func(req *Req) {
		req.ExpandAliases = enabled
		req.expandAliasesSet = true
	}
}

// RequestID returns a request modifier that sets the JSON-RPC request id.
//
// The id is for log correlation only; it has no protocol-semantic effect.
// When unset, a random UUID is generated per call.
func RequestID(id string) func(*Req) {
	return func(req *Req) {
		req.RequestID = id
	}
}

// Timeout returns a request modifier that sets a custom timeout for the
// operation.
//
// The timeout priority model is:
//  1. Request-specific timeout (this modifier) - highest priority
//  2. Context deadline (if already set) - medium priority
//  3. Client.OperationTimeout - fallback default
//
// Example:
//
//	res, err := client.Cli(ctx, cmds,
//	    eapi.Timeout(2*time.Minute))
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// Enable modifiers

// EnableReq carries options for the Enable operation
type EnableReq struct {
	// Format is the requested output format (json or text)
	Format string

	// Strict preserves all-or-nothing batch semantics: commands run in a
	// single batch and no text-mode fallback is attempted
	Strict bool

	// SendEnable prepends the "enable" privilege-escalation command
	SendEnable bool
}

// EnableFormat returns a modifier that sets the output format for Enable
func EnableFormat(format string) func(*EnableReq) {
	return func(req *EnableReq) {
		if format != "" {
			req.Format = format
		}
	}
}

// Strict returns a modifier that enables strict mode for Enable
//
// In strict mode all commands run as one batch with all-or-nothing
// semantics and the text-mode encoding fallback is never attempted.
func Strict(strict bool) func(*EnableReq) {
	return func(req *EnableReq) {
		req.Strict = strict
	}
}

// SendEnable returns a modifier that controls prepending of the "enable"
// command (default: true)
func SendEnable(send bool) func(*EnableReq) {
	return func(req *EnableReq) {
		req.SendEnable = send
	}
}
