// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Nixfleet is the CLI for updating a fleet of NixOS hosts over a
// tailnet. It provides subcommands for running parallel updates with
// a live dashboard (update), inspecting the discovered fleet (hosts),
// and printing build information (version).
package main
