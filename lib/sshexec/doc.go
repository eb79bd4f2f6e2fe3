// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sshexec connects to fleet hosts over SSH and runs commands
// on them, either captured whole or streamed line by line.
//
// Authentication works through a fallback chain rather than a single
// configured credential, because fleet hosts accumulate keys from
// different provisioning eras:
//
//   - file-based private keys (id_ed25519, id_rsa, id_ecdsa, id_dsa)
//     from the key directory, tried in that order
//   - the SSH agent offering all of its identities in one handshake
//   - each agent identity retried in its own handshake, which
//     rescues agents whose earlier keys exhaust the server's
//     attempt budget before the right one is offered
//
// Every attempt is narrated through a report callback so the operator
// watches authentication progress live instead of staring at a stuck
// "Connecting..." state. [Dialer] implements the chain; [Connector]
// is the seam test suites fake.
//
// Each handshake uses a fresh TCP connection carrying exactly one
// auth method. Connections refresh an I/O deadline on every read and
// write, so a host that dies mid-rebuild surfaces as an error within
// the I/O timeout instead of hanging the run.
//
// [Client.RunStreaming] feeds command output through a [StreamParser],
// which reassembles the byte stream into logical lines: it buffers
// partial lines across reads, resolves carriage-return overwrites the
// way a terminal would, strips ANSI escapes when a PTY is in play,
// and drops blank lines. The parser also keeps the raw transcript so
// the full output survives for logs even though the live view only
// sees cleaned lines.
package sshexec
