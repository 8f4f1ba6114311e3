// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Default client configuration values
const (
	DefaultProtocol           = "https"
	DefaultMaxRetries         = 3
	DefaultBackoffMinDelay    = 1 * time.Second
	DefaultBackoffMaxDelay    = 60 * time.Second
	DefaultBackoffDelayFactor = 2
	DefaultOperationTimeout   = 30 * time.Second
	DefaultVerifyCertificate  = false // eAPI endpoints commonly use self-signed certificates
	DefaultAutoRefresh        = true
	DefaultConfigDefaults     = true
	DefaultPrettyPrintLogs    = true
)

// CommandAPIPath is the fixed eAPI endpoint path for command execution
const CommandAPIPath = "/command-api"

// Named configs accepted by GetConfig and Section
const (
	RunningConfigName = "running-config"
	StartupConfigName = "startup-config"
)

// Security limits for JSON processing and logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields    = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// defaultRedactionPatterns contains regex patterns for redacting sensitive data in logs
var defaultRedactionPatterns = []*regexp.Regexp{
	// JSON field patterns
	regexp.MustCompile(`"password"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"secret"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"key"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"community"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"token"\s*:\s*"[^"]*"`),
	regexp.MustCompile(`"auth"\s*:\s*"[^"]*"`),
}

// Client represents an eAPI connection to a network device
//
// The Client owns a Transport (composition, never inheritance from the
// HTTP layer) and layers the JSON-RPC protocol, the config-session
// workflow, and the config-section parser on top of it.
type Client struct {
	// transport posts JSON-RPC payloads to the device
	transport Transport

	// mu synchronizes access to mutable state (caches, session mode)
	mu sync.RWMutex

	// Connection parameters
	Host     string
	Protocol string
	Port     int
	username string // unexported for security
	password string // unexported for security

	// enablePasswd authenticates privilege escalation, when required
	enablePasswd string

	// VerifyCertificate enables TLS certificate verification
	VerifyCertificate bool

	// Timeout configuration
	OperationTimeout time.Duration

	// Transport retry configuration
	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	// AutoRefresh drops cached configs after configuration changes
	AutoRefresh bool

	// ConfigDefaults includes default values in running-config output
	ConfigDefaults bool

	// Cached device state, populated by explicit accessors
	runningConfig string
	haveRunning   bool
	startupConfig string
	haveStartup   bool
	facts         *Facts

	// sessionName is set while the facade is in config-session mode
	sessionName string

	// sections memoizes parsed config section trees
	sections *sectionCache

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// NewClient creates a new eAPI client for the specified host
//
// No connection is established at creation; HTTP requests are made per
// operation. Configuration is validated immediately.
//
// Example:
//
//	client, err := eapi.NewClient(
//	    "192.168.1.1",
//	    eapi.Username("admin"),
//	    eapi.Password("secret"),
//	    eapi.Protocol("https"),
//	    eapi.VerifyCertificate(false),
//	    eapi.MaxRetries(5),
//	)
//	if err != nil {
//	    log.Fatal(err) // Configuration error
//	}
//
//	res, err := client.Cli1(ctx, "show hostname")
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(host string, opts ...func(*Client)) (*Client, error) {
	// Create client with default values
	client := &Client{
		Host:               host,
		Protocol:           DefaultProtocol,
		VerifyCertificate:  DefaultVerifyCertificate,
		OperationTimeout:   DefaultOperationTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		AutoRefresh:        DefaultAutoRefresh,
		ConfigDefaults:     DefaultConfigDefaults,
		sections:           newSectionCache(defaultSectionCacheLimit),
		logger:             &NoOpLogger{},
		prettyPrintLogs:    DefaultPrettyPrintLogs,
		redactionPatterns:  defaultRedactionPatterns,
	}

	// Apply functional options
	for _, opt := range opts {
		opt(client)
	}

	// Default port follows the protocol, like getservbyname
	if client.Port == 0 {
		if client.Protocol == "http" {
			client.Port = 80
		} else {
			client.Port = 443
		}
	}

	// Validate configuration
	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	// Build the default transport unless one was injected
	if client.transport == nil {
		client.transport = newHTTPTransport(client)
	}

	client.logger.Info(context.Background(), "eAPI client created",
		"host", client.Host,
		"protocol", client.Protocol,
		"port", client.Port)

	return client, nil
}

// HasCredentials returns true if credentials are configured
//
// This method only indicates if credentials exist without exposing
// the actual values.
func (c *Client) HasCredentials() bool {
	return c.username != "" || c.password != ""
}

// EnableAuthentication configures the privilege-escalation password
//
// EOS supports an additional password for sessions switching to executive
// (enable) mode. When set, the password is supplied as the input to the
// auto-prepended "enable" command.
func (c *Client) EnableAuthentication(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enablePasswd = strings.TrimSpace(password)
}

// Refresh drops the cached running-config, startup-config, and facts
//
// The caches are lazily repopulated by the next RunningConfig,
// StartupConfig, or Facts call. Parsed section trees are dropped as well.
func (c *Client) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropConfigCachesLocked()
	c.facts = nil
}

// dropConfigCachesLocked clears config caches. Caller must hold c.mu.
func (c *Client) dropConfigCachesLocked() {
	c.runningConfig = ""
	c.haveRunning = false
	c.startupConfig = ""
	c.haveStartup = false
	c.sections.clear()
}

// configChanged records that a batch altered the device configuration:
// memoized section trees are always invalidated, and with AutoRefresh the
// cached configs are dropped for lazy re-fetch.
func (c *Client) configChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.AutoRefresh {
		c.dropConfigCachesLocked()
	} else {
		c.sections.clear()
	}
}

// validateConfig validates client configuration before use
//
// Validates:
//   - Host is not empty
//   - Protocol is http or https
//   - Port range (1-65535)
//   - Positive timeout
//   - Retry params (MaxRetries >= 0, BackoffMaxDelay > BackoffMinDelay > 0)
//   - BackoffDelayFactor >= 1.0
//
// Returns an error if validation fails.
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if c.Protocol != "http" && c.Protocol != "https" {
		return fmt.Errorf("invalid protocol: %s (must be http or https)", c.Protocol)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.BackoffMinDelay <= 0 {
		return fmt.Errorf("backoff min delay must be positive, got: %v", c.BackoffMinDelay)
	}
	if c.BackoffMaxDelay <= c.BackoffMinDelay {
		return fmt.Errorf("backoff max delay (%v) must be greater than min delay (%v)",
			c.BackoffMaxDelay, c.BackoffMinDelay)
	}
	if c.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("backoff delay factor must be >= 1.0, got: %f", c.BackoffDelayFactor)
	}

	// Warn on insecure TLS configuration
	if c.Protocol == "https" && !c.VerifyCertificate {
		c.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"host", c.Host,
			"security_risk", "Man-in-the-Middle attacks possible")
	}

	// Warn if TLS is disabled entirely
	if c.Protocol == "http" {
		c.logger.Warn(context.Background(), "plain HTTP - connection is not encrypted",
			"host", c.Host,
			"security_risk", "Credentials and data transmitted in clear text")
	}

	// Warn if credentials are missing (not an error, but the device will
	// most likely reject requests)
	if !c.HasCredentials() {
		c.logger.Warn(context.Background(), "No credentials configured",
			"host", c.Host,
			"message", "device may reject requests")
	}

	return nil
}

// prepareJSONForLogging redacts sensitive data and formats JSON for logging
//
// This method performs security checks and data sanitization:
//  1. Validates JSON size to prevent ReDoS attacks (max 1MB)
//  2. Checks sensitive field count to prevent DoS (max 1000 fields)
//  3. Redacts sensitive data (passwords, secrets, keys, community strings, tokens)
//  4. Pretty-prints JSON if prettyPrintLogs is enabled
//
// Returns the processed JSON string safe for logging.
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	// Check JSON size limit to prevent ReDoS attacks
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	// Count sensitive fields before processing to prevent DoS
	sensitiveCount := strings.Count(jsonStr, `"password"`) +
		strings.Count(jsonStr, `"secret"`) +
		strings.Count(jsonStr, `"key"`) +
		strings.Count(jsonStr, `"community"`) +
		strings.Count(jsonStr, `"token"`) +
		strings.Count(jsonStr, `"auth"`)

	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	// Redact sensitive data first
	redacted := c.redactSensitiveData(jsonStr)

	// Pretty-print JSON if enabled
	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
		// Fallback: if indent fails (e.g., invalid JSON), return redacted as-is
	}

	return redacted
}

// redactSensitiveData replaces sensitive data in JSON with [REDACTED]
//
// Redacts common sensitive types in JSON fields: password, secret, key,
// community, token, auth. Handles flexible whitespace around colons.
//
// Returns the redacted JSON string.
func (c *Client) redactSensitiveData(json string) string {
	replacements := []string{
		`"password":"[REDACTED]"`,
		`"secret":"[REDACTED]"`,
		`"key":"[REDACTED]"`,
		`"community":"[REDACTED]"`,
		`"token":"[REDACTED]"`,
		`"auth":"[REDACTED]"`,
	}

	result := json
	for i, pattern := range c.redactionPatterns {
		result = pattern.ReplaceAllString(result, replacements[i])
	}

	return result
}
