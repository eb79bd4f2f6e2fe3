// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleetui implements the interactive terminal views of the
// update workflow: a host selector shown before a run and a live
// dashboard shown while the fleet updates.
//
// The selector lists discovered hosts with checkboxes and fzf-style
// fuzzy filtering over hostnames. The dashboard polls a
// [progress.Tracker] on a fixed interval and renders a two-pane view,
// hosts with phase labels on the left and the selected host's
// transcript on the right. Output follows the newest line until the
// user scrolls, and resumes following when they return to the bottom.
//
// Both models are plain bubbletea value types, so behavior is testable
// by feeding messages through Update without a terminal. [RunSelector]
// and [RunDashboard] wrap them in a program for the CLI.
//
// Key exports:
//
//   - [Selector], [NewSelector], [RunSelector]: pre-run host picker.
//   - [Dashboard], [NewDashboard], [RunDashboard]: live fleet view.
//   - [SelectorKeyMap], [DashboardKeyMap]: rebindable key maps.
//
// This package depends on lib/progress, lib/tailnet, and lib/tui.
package fleetui
