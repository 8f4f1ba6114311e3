// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// countingTransport answers every request with the same scripted response
// and counts calls. Unlike fakeTransport it never runs out of responses,
// which makes it suitable for concurrent hammering.
type countingTransport struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (c *countingTransport) Post(_ context.Context, _ string, _ []byte) ([]byte, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return []byte(c.response), nil
}

// TestConcurrentCli tests parallel command execution against one client
func TestConcurrentCli(t *testing.T) {
	transport := &countingTransport{response: successResponse(`{"version":"4.31.2F"}`)}
	client, err := NewClient("switch1", WithTransport(transport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const goroutines = 32
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Cli1(context.Background(), "show version")
			if err != nil {
				errs <- err
				return
			}
			if got := res.GetValue("version").String(); got != "4.31.2F" {
				errs <- fmt.Errorf("version = %q", got)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.calls != goroutines {
		t.Errorf("expected %d transport calls, got %d", goroutines, transport.calls)
	}
}

// TestConcurrentSectionParsing tests the memo cache under parallel lookups
func TestConcurrentSectionParsing(t *testing.T) {
	transport := &countingTransport{
		response: successResponse(`{}`, `{"output":`+jsonString(sampleConfig)+`}`),
	}
	client, err := NewClient("switch1", WithTransport(transport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Prime the config cache so goroutines contend on the parse memo only
	if _, err := client.RunningConfig(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := client.Section(context.Background(), `^interface`, RunningConfigName)
			if err != nil {
				errs <- err
				return
			}
			if text == "" {
				errs <- fmt.Errorf("empty section text")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// TestConcurrentCacheInvalidation tests Refresh racing with readers
func TestConcurrentCacheInvalidation(t *testing.T) {
	transport := &countingTransport{
		response: successResponse(`{}`, `{"output":"hostname sw1\n"}`),
	}
	client, err := NewClient("switch1", WithTransport(transport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := client.RunningConfig(context.Background()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				client.Refresh()
			}
		}()
	}
	wg.Wait()
}
