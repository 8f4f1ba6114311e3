// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClientFor builds a client whose default HTTP transport points at
// the given test server.
func newTestClientFor(t *testing.T, server *httptest.Server, opts ...func(*Client)) *Client {
	t.Helper()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}

	base := []func(*Client){
		Protocol("http"),
		Port(port),
		Username("admin"),
		Password("secret"),
		BackoffMinDelay(time.Millisecond),
		BackoffMaxDelay(10 * time.Millisecond),
	}
	client, err := NewClient(u.Hostname(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	return client
}

// TestHTTPTransportHeaders tests content type and basic auth
func TestHTTPTransportHeaders(t *testing.T) {
	var gotContentType, gotUser, gotPass string
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_, _ = io.WriteString(w, successResponse(`{"version":"4.31.2F"}`))
	}))
	defer server.Close()

	client := newTestClientFor(t, server)
	if _, err := client.Cli1(context.Background(), "show version"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotContentType != ContentTypeJSONRPC {
		t.Errorf("Content-Type = %q, want %q", gotContentType, ContentTypeJSONRPC)
	}
	if gotPath != CommandAPIPath {
		t.Errorf("path = %q, want %q", gotPath, CommandAPIPath)
	}
	if gotUser != "admin" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
}

// TestHTTPTransportRetriesTransient tests retry-then-success on 503
func TestHTTPTransportRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, successResponse(`{"version":"4.31.2F"}`))
	}))
	defer server.Close()

	client := newTestClientFor(t, server, MaxRetries(3))
	res, err := client.Cli1(context.Background(), "show version")
	if err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if got := res.GetValue("version").String(); got != "4.31.2F" {
		t.Errorf("version = %q", got)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

// TestHTTPTransportRetriesExhausted tests transient failure past the limit
func TestHTTPTransportRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClientFor(t, server, MaxRetries(2))
	_, err := client.Cli1(context.Background(), "show version")

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", terr.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", calls.Load())
	}
}

// TestHTTPTransportNoRetryPermanent tests that permanent statuses fail fast
func TestHTTPTransportNoRetryPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "Unable to authenticate user")
	}))
	defer server.Close()

	client := newTestClientFor(t, server, MaxRetries(3))
	_, err := client.Cli1(context.Background(), "show version")

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if terr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", terr.StatusCode)
	}
	if !strings.Contains(terr.Body, "authenticate") {
		t.Errorf("Body = %q", terr.Body)
	}
	if calls.Load() != 1 {
		t.Errorf("401 must not be retried, got %d attempts", calls.Load())
	}
}

// TestHTTPTransportZeroRetries tests that MaxRetries(0) disables retries
func TestHTTPTransportZeroRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClientFor(t, server, MaxRetries(0))
	if _, err := client.Cli1(context.Background(), "show version"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

// TestHTTPTransportErrorBodyTruncation tests the diagnostic body cap
func TestHTTPTransportErrorBodyTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, strings.Repeat("x", maxErrorBodyLength*2))
	}))
	defer server.Close()

	client := newTestClientFor(t, server)
	_, err := client.Cli1(context.Background(), "show version")

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if len(terr.Body) != maxErrorBodyLength {
		t.Errorf("Body length = %d, want %d", len(terr.Body), maxErrorBodyLength)
	}
}

// TestHTTPTransportContextCancellation tests that cancellation aborts
// retries immediately
func TestHTTPTransportContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClientFor(t, server,
		MaxRetries(5),
		BackoffMinDelay(10*time.Second),
		BackoffMaxDelay(20*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Cli(ctx, Commands("show version"))
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v, backoff was not interrupted", elapsed)
	}
}

// TestBackoffBounds tests the exponential backoff calculation
func TestBackoffBounds(t *testing.T) {
	transport := &httpTransport{
		backoffMinDelay:    time.Second,
		backoffMaxDelay:    10 * time.Second,
		backoffDelayFactor: 2.0,
		logger:             &NoOpLogger{},
	}

	tests := []struct {
		attempt int
		minWant time.Duration
		maxWant time.Duration
	}{
		// jitter adds up to 10% on top of the base delay
		{attempt: 0, minWant: time.Second, maxWant: 1100 * time.Millisecond},
		{attempt: 1, minWant: 2 * time.Second, maxWant: 2200 * time.Millisecond},
		{attempt: 2, minWant: 4 * time.Second, maxWant: 4400 * time.Millisecond},
		// capped at max delay plus jitter
		{attempt: 10, minWant: 10 * time.Second, maxWant: 11 * time.Second},
		{attempt: 100, minWant: 10 * time.Second, maxWant: 11 * time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := transport.Backoff(tt.attempt)
			if got < tt.minWant || got > tt.maxWant {
				t.Fatalf("Backoff(%d) = %v, want in [%v, %v]", tt.attempt, got, tt.minWant, tt.maxWant)
			}
		}
	}
}

// TestCheckContextCancellation tests the non-blocking cancellation check
func TestCheckContextCancellation(t *testing.T) {
	if err := checkContextCancellation(context.Background()); err != nil {
		t.Errorf("background context: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := checkContextCancellation(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: %v", err)
	}
}
