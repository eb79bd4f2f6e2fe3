// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/nixfleet-dev/nixfleet/lib/progress"
	"github.com/nixfleet-dev/nixfleet/lib/sshexec"
	"github.com/nixfleet-dev/nixfleet/lib/transcript"
)

// Remote commands. The system flake lives in /etc/nixos on every
// fleet host.
const (
	repoCheckCommand  = "test -d /etc/nixos/.git || echo 'No git repo found'"
	repoSyncCommand   = "cd /etc/nixos && git pull --verbose"
	repoMissingMarker = "No git repo found"
)

func rebuildCommand(identifier string, boot bool) string {
	mode := "switch"
	if boot {
		mode = "boot"
	}
	return fmt.Sprintf("nixos-rebuild %s --flake %q --no-write-lock-file", mode, "/etc/nixos#"+identifier)
}

// Result is the outcome of one host's update.
type Result struct {
	// Host is the tracking identity the run was reported under.
	Host string

	// Success is true only when every phase completed.
	Success bool

	// Output is the accumulated transcript for runs that got far
	// enough to produce one, otherwise just the failure reason.
	Output string
}

// Pipeline updates a single host. Fields are set once before Run.
type Pipeline struct {
	// Token is the raw "hostname:address" target.
	Token string

	Options   Options
	Connector sshexec.Connector

	// Emit publishes progress. May be nil when nobody is watching.
	Emit func(progress.Event)
}

// Run executes the phases in order and returns the host's result. It
// never returns an error; every failure mode is folded into a Failed
// phase and an unsuccessful result so one host cannot end the fleet
// run.
func (p *Pipeline) Run(ctx context.Context) Result {
	emit := p.Emit
	if emit == nil {
		emit = func(progress.Event) {}
	}
	host := HostKey(p.Token)

	target, err := ParseTarget(p.Token)
	if err != nil {
		return fail(emit, host, err.Error())
	}

	emit(progress.Event{Host: host, Phase: progress.Connecting(), Line: "Connecting to " + target.Addr + "..."})
	client, err := p.Connector.Connect(ctx, target.Hostname, target.Addr, func(line string) {
		emit(progress.Event{Host: host, Phase: progress.Connecting(), Line: line})
	})
	if err != nil {
		return fail(emit, host, err.Error())
	}
	defer client.Close()

	var record transcript.Builder

	if p.Options.Command != "" && !p.Options.RunAfter {
		emit(progress.Event{Host: host, Phase: progress.RunningBeforeCommand(), Line: "Running: " + p.Options.Command})
		record.Header("before-command")
		output, code, err := client.Run(ctx, p.Options.Command)
		if err != nil {
			return fail(emit, host, err.Error())
		}
		record.Section(p.Options.Command, output)
		if code != 0 {
			reason := fmt.Sprintf("Before-command failed with exit code: %d", code)
			return failWithTranscript(emit, host, reason, &record)
		}
	}

	emit(progress.Event{Host: host, Phase: progress.CheckingRepo(), Line: "Checking for git repository..."})
	checkOutput, _, err := client.Run(ctx, repoCheckCommand)
	if err != nil {
		return fail(emit, host, err.Error())
	}
	if strings.Contains(checkOutput, repoMissingMarker) {
		return fail(emit, host, "No git repository found in /etc/nixos")
	}

	emit(progress.Event{Host: host, Phase: progress.SyncingRepo(), Line: "Running git pull..."})
	pullOutput, code, err := client.RunStreaming(ctx, repoSyncCommand, sshexec.StreamConfig{
		OnLine: func(line, detail string) {
			emit(progress.Event{Host: host, Phase: progress.SyncingRepo(), Line: line})
		},
	})
	if err != nil {
		return fail(emit, host, err.Error())
	}
	record.Section(repoSyncCommand, pullOutput)
	if code != 0 {
		reason := fmt.Sprintf("Git pull failed with exit code: %d", code)
		return failWithTranscript(emit, host, reason, &record)
	}

	emit(progress.Event{Host: host, Phase: progress.Rebuilding(""), Line: "Starting system rebuild..."})
	rebuild := rebuildCommand(target.RebuildIdentifier(), p.Options.Boot)
	rebuildOutput, code, err := client.RunStreaming(ctx, rebuild, sshexec.StreamConfig{
		PTY:      true,
		Classify: progress.RebuildDetail,
		OnLine: func(line, detail string) {
			emit(progress.Event{Host: host, Phase: progress.Rebuilding(detail), Line: line})
		},
	})
	if err != nil {
		return fail(emit, host, err.Error())
	}
	record.Section(rebuild, rebuildOutput)
	if code != 0 {
		reason := fmt.Sprintf("nixos-rebuild failed with exit code: %d", code)
		return failWithTranscript(emit, host, reason, &record)
	}

	if p.Options.Command != "" && p.Options.RunAfter {
		emit(progress.Event{Host: host, Phase: progress.RunningAfterCommand(), Line: "Running: " + p.Options.Command})
		record.Header("after-command")
		output, code, err := client.Run(ctx, p.Options.Command)
		if err != nil {
			return fail(emit, host, err.Error())
		}
		record.Section(p.Options.Command, output)
		if code != 0 {
			reason := fmt.Sprintf("After-command failed with exit code: %d", code)
			return failWithTranscript(emit, host, reason, &record)
		}
	}

	emit(progress.Event{Host: host, Phase: progress.Success()})
	return Result{Host: host, Success: true, Output: record.String()}
}

// fail marks the host failed with a bare reason. Used for phases
// whose output never made it into a transcript.
func fail(emit func(progress.Event), host, reason string) Result {
	emit(progress.Event{Host: host, Phase: progress.Failed(reason)})
	return Result{Host: host, Output: reason}
}

// failWithTranscript marks the host failed and returns everything
// captured so far, the reason appended as the final line.
func failWithTranscript(emit func(progress.Event), host, reason string, record *transcript.Builder) Result {
	record.Line(reason)
	emit(progress.Event{Host: host, Phase: progress.Failed(reason)})
	return Result{Host: host, Output: record.String()}
}
