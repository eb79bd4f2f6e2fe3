// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

// Options configures what an update run does on each host beyond the
// fixed pull-and-rebuild sequence.
type Options struct {
	// Boot selects "nixos-rebuild boot", staging the new system for
	// the next restart instead of activating it immediately.
	Boot bool

	// Command is an extra shell command run on each host. It runs
	// before the update by default and aborts the host on a non-zero
	// exit, so it can act as a per-host gate.
	Command string

	// RunAfter moves Command to after a successful rebuild. Hosts
	// that fail an earlier phase never run it.
	RunAfter bool
}
