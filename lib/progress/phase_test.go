// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import "testing"

func TestPhaseLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phase Phase
		want  string
	}{
		{name: "pending", phase: Pending(), want: "Pending"},
		{name: "connecting", phase: Connecting(), want: "Connecting..."},
		{name: "before command", phase: RunningBeforeCommand(), want: "Running before-command..."},
		{name: "checking repo", phase: CheckingRepo(), want: "Checking git repo..."},
		{name: "syncing repo", phase: SyncingRepo(), want: "Pulling git updates..."},
		{name: "rebuilding without detail", phase: Rebuilding(""), want: "Rebuilding system..."},
		{name: "rebuilding with detail", phase: Rebuilding("building 3 drv"), want: "Rebuilding: building 3 drv"},
		{name: "after command", phase: RunningAfterCommand(), want: "Running after-command..."},
		{name: "success", phase: Success(), want: "✅ Success"},
		{name: "failed", phase: Failed("Git pull failed with exit code: 1"), want: "❌ Failed: Git pull failed with exit code: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.phase.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	t.Parallel()

	terminal := []Phase{Success(), Failed("boom")}
	for _, p := range terminal {
		if !p.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", p.Kind)
		}
	}

	working := []Phase{
		Pending(), Connecting(), RunningBeforeCommand(), CheckingRepo(),
		SyncingRepo(), Rebuilding("copying paths..."), RunningAfterCommand(),
	}
	for _, p := range working {
		if p.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", p.Kind)
		}
	}
}

func TestPhaseSeverity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phase Phase
		want  Severity
	}{
		{Pending(), SeverityWaiting},
		{Connecting(), SeverityWorking},
		{RunningBeforeCommand(), SeverityWorking},
		{CheckingRepo(), SeverityWorking},
		{SyncingRepo(), SeverityWorking},
		{Rebuilding(""), SeverityWorking},
		{RunningAfterCommand(), SeverityWorking},
		{Success(), SeverityGood},
		{Failed("x"), SeverityBad},
	}

	for _, tt := range tests {
		if got := tt.phase.Severity(); got != tt.want {
			t.Errorf("%v.Severity() = %v, want %v", tt.phase.Kind, got, tt.want)
		}
	}
}
