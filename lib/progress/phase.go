// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package progress models the observable state of a fleet update: the
// per-host phase vocabulary, the events pipelines emit as they move
// through it, and the tracker that aggregates events into a table the
// renderer reads while updates run.
package progress

// Kind identifies a pipeline phase. The set is closed: a host moves
// through the non-terminal kinds in pipeline order and ends in exactly
// one of KindSuccess or KindFailed.
type Kind int

const (
	// KindPending means the host is selected but its pipeline has not
	// started yet. Every tracked host begins here.
	KindPending Kind = iota

	// KindConnecting covers TCP connect, SSH handshake, and the
	// authentication chain.
	KindConnecting

	// KindRunningBeforeCommand covers the optional operator command
	// configured to run before the update sequence.
	KindRunningBeforeCommand

	// KindCheckingRepo covers the configuration repository presence
	// check.
	KindCheckingRepo

	// KindSyncingRepo covers the git pull of the configuration
	// repository.
	KindSyncingRepo

	// KindRebuilding covers the nixos-rebuild invocation. The phase
	// Detail carries a short hint parsed from build output when one
	// is available.
	KindRebuilding

	// KindRunningAfterCommand covers the optional operator command
	// configured to run after a successful rebuild.
	KindRunningAfterCommand

	// KindSuccess is terminal: every required step exited zero.
	KindSuccess

	// KindFailed is terminal: some step failed. The phase Detail
	// carries the failure reason.
	KindFailed
)

// String returns the identifier-style name of the kind, for logs and
// test failure messages. Operator-facing text comes from Phase.Label.
func (k Kind) String() string {
	switch k {
	case KindPending:
		return "pending"
	case KindConnecting:
		return "connecting"
	case KindRunningBeforeCommand:
		return "before-command"
	case KindCheckingRepo:
		return "checking-repo"
	case KindSyncingRepo:
		return "syncing-repo"
	case KindRebuilding:
		return "rebuilding"
	case KindRunningAfterCommand:
		return "after-command"
	case KindSuccess:
		return "success"
	case KindFailed:
		return "failed"
	}
	return "unknown"
}

// Phase is one point in a host's update lifecycle. Detail is only
// meaningful for KindRebuilding (a short build progress hint, may be
// empty) and KindFailed (the failure reason).
type Phase struct {
	Kind   Kind
	Detail string
}

// Pending returns the initial phase of every tracked host.
func Pending() Phase { return Phase{Kind: KindPending} }

// Connecting returns the phase covering connect and authentication.
func Connecting() Phase { return Phase{Kind: KindConnecting} }

// RunningBeforeCommand returns the phase for the pre-update command.
func RunningBeforeCommand() Phase { return Phase{Kind: KindRunningBeforeCommand} }

// CheckingRepo returns the phase for the repository presence check.
func CheckingRepo() Phase { return Phase{Kind: KindCheckingRepo} }

// SyncingRepo returns the phase for the repository pull.
func SyncingRepo() Phase { return Phase{Kind: KindSyncingRepo} }

// Rebuilding returns the rebuild phase carrying an optional short
// progress hint. An empty detail renders as the generic rebuild label.
func Rebuilding(detail string) Phase { return Phase{Kind: KindRebuilding, Detail: detail} }

// RunningAfterCommand returns the phase for the post-update command.
func RunningAfterCommand() Phase { return Phase{Kind: KindRunningAfterCommand} }

// Success returns the terminal success phase.
func Success() Phase { return Phase{Kind: KindSuccess} }

// Failed returns the terminal failure phase with the given reason.
func Failed(reason string) Phase { return Phase{Kind: KindFailed, Detail: reason} }

// Terminal reports whether the phase is one of the two end states. A
// host never leaves a terminal phase.
func (p Phase) Terminal() bool {
	return p.Kind == KindSuccess || p.Kind == KindFailed
}

// Label returns the operator-facing text for the phase.
func (p Phase) Label() string {
	switch p.Kind {
	case KindPending:
		return "Pending"
	case KindConnecting:
		return "Connecting..."
	case KindRunningBeforeCommand:
		return "Running before-command..."
	case KindCheckingRepo:
		return "Checking git repo..."
	case KindSyncingRepo:
		return "Pulling git updates..."
	case KindRebuilding:
		if p.Detail == "" {
			return "Rebuilding system..."
		}
		return "Rebuilding: " + p.Detail
	case KindRunningAfterCommand:
		return "Running after-command..."
	case KindSuccess:
		return "✅ Success"
	case KindFailed:
		return "❌ Failed: " + p.Detail
	}
	return "Unknown"
}

// Severity classifies a phase for display styling. The renderer maps
// severities to theme colors; the engine itself never styles text.
type Severity int

const (
	// SeverityWaiting marks work that has not started.
	SeverityWaiting Severity = iota

	// SeverityWorking marks an update in progress.
	SeverityWorking

	// SeverityGood marks terminal success.
	SeverityGood

	// SeverityBad marks terminal failure.
	SeverityBad
)

// Severity returns the display class of the phase.
func (p Phase) Severity() Severity {
	switch p.Kind {
	case KindPending:
		return SeverityWaiting
	case KindSuccess:
		return SeverityGood
	case KindFailed:
		return SeverityBad
	}
	return SeverityWorking
}
