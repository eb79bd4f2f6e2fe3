// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleet drives NixOS updates across a set of hosts.
//
// Each host runs a fixed pipeline: connect over SSH, optionally run
// an operator command, verify /etc/nixos is a git repository, pull
// it, rebuild the system from its flake, and optionally run the
// operator command afterwards instead. The first failing phase ends
// that host's run; later phases never execute.
//
// [Pipeline] is the per-host sequence. [Coordinator] fans pipelines
// out across the fleet, one goroutine per host, and funnels their
// progress events through a bounded channel into a
// [progress.Tracker]. Event delivery is best-effort: a full channel
// drops the event rather than stalling an update. Results always
// arrive; a host whose pipeline panics is reported as failed instead
// of taking the run down.
package fleet
