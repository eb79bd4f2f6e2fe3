// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import (
	"strings"
	"sync"
)

// Event is one progress message from a host pipeline: a phase to
// display and, optionally, a completed output line to append to the
// host's accumulated output. An empty Line means the event is a phase
// change only; pipelines never deliver blank lines as events, so the
// empty string is unambiguous.
//
// Events for a single host arrive in emission order. Events across
// hosts have no ordering relationship.
type Event struct {
	Host  string
	Phase Phase
	Line  string
}

// HostState is a point-in-time copy of one host's tracked state, safe
// to retain after the tracker moves on.
type HostState struct {
	Host   string
	Phase  Phase
	Output string
}

// hostRecord is the tracker-owned mutable state for one host. Output
// grows by whole lines; a strings.Builder keeps appends cheap while
// rebuild output streams in.
type hostRecord struct {
	phase  Phase
	output strings.Builder
}

// Tracker aggregates progress events into a per-host table. One
// goroutine (the Run loop, or whatever single caller uses Apply)
// mutates it; any number of readers take snapshots concurrently. The
// lock is held only for field updates and copies, never across
// blocking calls.
//
// Every host is seeded in the Pending phase at construction, so a
// renderer sees the full fleet immediately, before any pipeline has
// emitted its first event. Once a host reaches a terminal phase the
// tracker ignores further events for it.
type Tracker struct {
	mu    sync.RWMutex
	hosts map[string]*hostRecord
	order []string
	done  chan struct{}
}

// NewTracker returns a tracker seeded with one Pending entry per host.
// Snapshot order follows the order given here.
func NewTracker(hosts []string) *Tracker {
	t := &Tracker{
		hosts: make(map[string]*hostRecord, len(hosts)),
		order: make([]string, 0, len(hosts)),
		done:  make(chan struct{}),
	}
	for _, host := range hosts {
		if _, ok := t.hosts[host]; ok {
			continue
		}
		t.hosts[host] = &hostRecord{phase: Pending()}
		t.order = append(t.order, host)
	}
	return t
}

// Run consumes events until the channel closes, then closes Done.
// Intended to run on its own goroutine as the sole writer.
func (t *Tracker) Run(events <-chan Event) {
	for event := range events {
		t.Apply(event)
	}
	close(t.done)
}

// Done is closed once Run has drained its event channel. After Done,
// snapshots reflect every event that was delivered.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Apply folds one event into the table. Events for unknown hosts and
// events arriving after a host's terminal phase are dropped: progress
// is advisory, and a host never transitions out of Success or Failed.
func (t *Tracker) Apply(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.hosts[event.Host]
	if !ok || record.phase.Terminal() {
		return
	}
	record.phase = event.Phase
	if event.Line != "" {
		record.output.WriteString(event.Line)
		record.output.WriteByte('\n')
	}
}

// Snapshot returns a copy of every host's state in seed order. The
// copy is consistent at the moment of the call; it may be stale by the
// time the caller renders it, which is acceptable for a display loop.
func (t *Tracker) Snapshot() []HostState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make([]HostState, 0, len(t.order))
	for _, host := range t.order {
		record := t.hosts[host]
		states = append(states, HostState{
			Host:   host,
			Phase:  record.phase,
			Output: record.output.String(),
		})
	}
	return states
}

// State returns the current state of one host.
func (t *Tracker) State(host string) (HostState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.hosts[host]
	if !ok {
		return HostState{}, false
	}
	return HostState{Host: host, Phase: record.phase, Output: record.output.String()}, true
}

// AllTerminal reports whether every tracked host has reached Success
// or Failed. The dashboard uses this to decide when a normal quit is
// allowed.
func (t *Tracker) AllTerminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, record := range t.hosts {
		if !record.phase.Terminal() {
			return false
		}
	}
	return true
}
