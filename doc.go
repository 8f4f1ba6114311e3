// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package eapi provides a simple, fluent API for driving Arista EOS network
// devices over eAPI, the JSON-RPC-over-HTTP management protocol for CLI
// command execution.
//
// The library sends batches of CLI commands in a single wire request, maps
// the device's partial-failure reporting back onto ordered per-command
// outcomes, and layers two workflows on top: staged configuration sessions
// with commit/abort/diff semantics, and a hierarchical parser for indented
// configuration text.
//
// # Quick Start
//
// Create a client and run commands:
//
//	client, err := eapi.NewClient(
//	    "192.168.1.1",
//	    eapi.Username("admin"),
//	    eapi.Password("secret"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	res, err := client.Cli1(ctx, "show version")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Version:", res.GetValue("version").String())
//
// # Batched Execution
//
// Commands in one batch execute in order. The device stops at the first
// failing command; the returned *CommandError reports which commands passed,
// which failed, and which were never attempted:
//
//	cmds := eapi.Commands("show version", "bogus command", "show hostname")
//	_, err := client.Cli(ctx, cmds)
//	var cmdErr *eapi.CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println("failed at:", cmdErr.Failed)
//	    fmt.Println("never ran:", cmdErr.NotExec)
//	}
//
// # Configuration Sessions
//
// Sessions stage configuration server-side until an explicit commit:
//
//	sess := client.ConfigSession("maintenance-1")
//	err := sess.Push(ctx, []string{"interface Ethernet1", "  shutdown"}, false)
//	diff, err := sess.Diff(ctx)
//	err = sess.Commit(ctx, "00:05:00") // commit with confirmation timer
//	err = sess.Commit(ctx, "")         // confirm before the timer expires
//
// # Config Parsing
//
// Running or startup configuration text parses into a section tree keyed by
// header line, with banner blocks kept as opaque entries:
//
//	section, err := client.Section(ctx, `^interface Ethernet1$`, eapi.RunningConfigName)
//
// # Error Handling
//
// All failures surface as explicit errors: *TransportError for HTTP-level
// failures, *CommandError for mid-batch command failures. The library never
// retries a failed command internally, with one exception: in non-strict
// Enable mode a command the device cannot encode as JSON is re-issued once
// with text encoding.
//
// # Thread Safety
//
// A Client is safe for concurrent use. The library adds no internal
// queueing or serialization beyond cache synchronization; callers that need
// serialized session mutation must serialize their own calls.
package eapi
