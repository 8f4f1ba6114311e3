// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// ContentTypeJSONRPC is the content type eAPI expects on every request
const ContentTypeJSONRPC = "application/json-rpc"

// maxErrorBodyLength limits how much of a non-2xx response body is carried
// in a TransportError, to keep errors loggable.
const maxErrorBodyLength = 4096

// Transport sends a JSON payload to the device and returns the raw
// response body.
//
// The default implementation posts over HTTP(S) with basic auth. A custom
// Transport can be substituted via the WithTransport option, which is how
// tests run against fake devices:
//
//	client, _ := eapi.NewClient("switch1", eapi.WithTransport(fake))
//
// Post must return a *TransportError for non-2xx responses. Retry policy
// is the transport's own concern; the RPC layer never retries.
type Transport interface {
	Post(ctx context.Context, path string, body []byte) ([]byte, error)
}

// httpTransport is the default Transport: an HTTP client bound to the
// device's base URL, carrying basic-auth credentials and the fixed
// JSON-RPC content type. Transient failures (connection errors and the
// status codes in TransientStatuses) are retried with exponential backoff.
type httpTransport struct {
	baseURL  string
	username string
	password string

	client *http.Client

	maxRetries         int
	backoffMinDelay    time.Duration
	backoffMaxDelay    time.Duration
	backoffDelayFactor float64

	logger Logger
}

// newHTTPTransport builds the default transport from client configuration.
// TLS certificate verification follows the client's VerifyCertificate flag;
// eAPI endpoints commonly run with self-signed certificates, hence the
// insecure default.
func newHTTPTransport(c *Client) *httpTransport {
	return &httpTransport{
		baseURL:  fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port),
		username: c.username,
		password: c.password,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !c.VerifyCertificate, //nolint:gosec // Deliberate, see VerifyCertificate
				},
			},
		},
		maxRetries:         c.MaxRetries,
		backoffMinDelay:    c.BackoffMinDelay,
		backoffMaxDelay:    c.BackoffMaxDelay,
		backoffDelayFactor: c.BackoffDelayFactor,
		logger:             c.logger,
	}
}

// Post implements Transport over HTTP.
//
// Each attempt posts the body with the JSON-RPC content type and basic
// auth. Non-2xx responses become *TransportError; transient statuses and
// connection-level errors are retried up to maxRetries with backoff,
// except when the context has been canceled.
func (t *httpTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	url := t.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", ContentTypeJSONRPC)
		if t.username != "" || t.password != "" {
			req.SetBasicAuth(t.username, t.password)
		}

		resp, err := t.client.Do(req)
		if err != nil {
			// Context cancellation is never transient
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("post %s: %w", path, err)
			}

			lastErr = fmt.Errorf("post %s: %w", path, err)
			if attempt < t.maxRetries {
				if err := t.sleepBackoff(ctx, attempt, lastErr); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		data, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close() //nolint:errcheck // Body already fully read

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			errBody := string(data)
			if len(errBody) > maxErrorBodyLength {
				errBody = errBody[:maxErrorBodyLength]
			}
			terr := &TransportError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       errBody,
			}

			if isTransientStatus(resp.StatusCode) && attempt < t.maxRetries {
				lastErr = terr
				if err := t.sleepBackoff(ctx, attempt, terr); err != nil {
					return nil, err
				}
				continue
			}
			return nil, terr
		}

		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return data, nil
	}

	return nil, lastErr
}

// sleepBackoff waits out the backoff delay for the given attempt, aborting
// early if the context is canceled.
func (t *httpTransport) sleepBackoff(ctx context.Context, attempt int, cause error) error {
	backoff := t.Backoff(attempt)
	t.logger.Warn(ctx, "transient transport error, retrying",
		"attempt", attempt+1,
		"max_retries", t.maxRetries,
		"backoff", backoff,
		"error", cause.Error())

	select {
	case <-time.After(backoff):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
	}
}

// Backoff calculates the backoff delay for a retry attempt using
// exponential backoff with jitter
//
// The formula is: delay = min(minDelay * (factor ^ attempt) + jitter, maxDelay)
// where jitter is a cryptographically secure random value in [0, delay * 0.1].
//
// If crypto/rand fails, falls back to timestamp-based jitter to prevent a
// thundering herd; timestamp jitter is not cryptographically secure but
// provides sufficient randomness for retry dispersal.
//
// Returns the duration to wait before retrying.
func (t *httpTransport) Backoff(attempt int) time.Duration {
	// Calculate base delay: minDelay * (factor ^ attempt)
	delay := float64(t.backoffMinDelay) * math.Pow(t.backoffDelayFactor, float64(attempt))

	// Check for overflow and cap at max delay
	if math.IsInf(delay, 1) || delay > float64(t.backoffMaxDelay) {
		delay = float64(t.backoffMaxDelay)
	}

	// Add jitter (0-10% of delay) to prevent thundering herd
	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var jitterBytes [8]byte
		if _, err := rand.Read(jitterBytes[:]); err == nil {
			// Mask off sign bit to ensure positive value within int64 range
			//nolint:gosec // G115: explicitly masked to prevent overflow
			jitterVal := int64(binary.BigEndian.Uint64(jitterBytes[:]) & 0x7FFFFFFFFFFFFFFF)
			delay += float64(jitterVal % jitterMax)
		} else {
			timestamp := time.Now().UnixNano()
			delay += float64((timestamp%jitterMax + jitterMax) % jitterMax)
		}
	}

	return time.Duration(delay)
}

// checkContextCancellation checks if context is canceled or deadline exceeded
//
// This is a non-blocking check that immediately returns if the context is
// canceled or its deadline has passed. Used before network attempts to
// avoid wasted work.
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err() // context.Canceled or context.DeadlineExceeded
	default:
		return nil
	}
}
