// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package tailnet discovers fleet hosts on a Tailscale network.
//
// Two backends implement [Source]. [CLIStatus] asks the local
// tailscaled through "tailscale status --json" and needs no
// credentials, which makes it the default on an operator machine
// that is itself on the tailnet. [APISource] talks to the Tailscale
// admin API instead, for runs from hosts outside the tailnet such as
// CI; it needs an API key and tailnet name from the environment.
//
// [Discover] applies the fleet convention to either backend's
// listing: a fleet member is online, carries at least one tailnet
// address, and its hostname starts with the fleet prefix ("nix" by
// default, so the flake attribute is the hostname with the prefix
// stripped).
package tailnet
