// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface primitives for
// nixfleet's interactive views: the color theme keyed to update phase
// severity, fzf-backed fuzzy matching for filter inputs, a
// proportional scrollbar column, and a heat tracker that briefly
// tints rows after they change.
//
// The bubbletea models themselves live in lib/fleetui; this package
// holds what they share so the selector and the dashboard render with
// the same palette and keyboard conventions.
package tui
