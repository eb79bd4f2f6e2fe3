// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"
)

// HeatDecay is how long a row stays tinted after it is ignited. The
// tint is at full intensity immediately after ignition and fades to
// nothing once this much time has passed.
const HeatDecay = 1500 * time.Millisecond

// HeatKind selects the tint color for an ignited row.
type HeatKind int

const (
	// HeatAdvance marks a row whose state moved forward (amber tint).
	HeatAdvance HeatKind = iota
	// HeatFail marks a row that reached a failure state (red tint).
	HeatFail
)

// ignition records when and how a row last changed.
type ignition struct {
	at   time.Time
	kind HeatKind
}

// HeatTracker drives the brief row flash that draws the eye to state
// changes in a list view. Each change ignites the row's ID; the view
// then tints the row until [HeatDecay] has elapsed. IDs are typically
// hostnames, so the map stays bounded by the fleet size.
type HeatTracker struct {
	ignitions map[string]ignition
}

// NewHeatTracker creates an empty heat tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{ignitions: make(map[string]ignition)}
}

// Ignite marks a row as just changed. Re-igniting a still-hot row
// restarts its fade from full intensity.
func (tracker *HeatTracker) Ignite(id string, kind HeatKind, now time.Time) {
	tracker.ignitions[id] = ignition{at: now, kind: kind}
}

// Heat returns the row's current intensity: 1.0 at ignition, falling
// linearly to 0.0 at [HeatDecay]. Rows that were never ignited, or
// whose tint has fully faded, return 0.0.
func (tracker *HeatTracker) Heat(id string, now time.Time) float64 {
	entry, ok := tracker.ignitions[id]
	if !ok {
		return 0.0
	}
	elapsed := now.Sub(entry.at)
	if elapsed >= HeatDecay {
		return 0.0
	}
	return 1.0 - float64(elapsed)/float64(HeatDecay)
}

// Kind returns how the row last changed. Only meaningful while
// Heat returns a value above zero.
func (tracker *HeatTracker) Kind(id string) HeatKind {
	return tracker.ignitions[id].kind
}
