// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package update implements "nixfleet update", the full fleet update
// workflow: discover hosts, pick the targets, run the pull-and-rebuild
// pipeline on each over SSH, and report the outcome.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/nixfleet-dev/nixfleet/cmd/nixfleet/cli"
	"github.com/nixfleet-dev/nixfleet/lib/config"
	"github.com/nixfleet-dev/nixfleet/lib/fleet"
	"github.com/nixfleet-dev/nixfleet/lib/fleetui"
	"github.com/nixfleet-dev/nixfleet/lib/progress"
	"github.com/nixfleet-dev/nixfleet/lib/sshexec"
	"github.com/nixfleet-dev/nixfleet/lib/tailnet"
)

// pollInterval is how often the plain-output mode inspects the
// tracker for phase transitions to log.
const pollInterval = 100 * time.Millisecond

// updateParams holds the flag values for the update command.
type updateParams struct {
	boot         bool
	forwardAgent bool
	command      string
	runAfter     bool
	hosts        []string
	all          bool
	username     string
	discover     string
	logDir       string
	noTUI        bool

	logLevel   string
	configPath string
}

// Command returns the "update" command.
func Command() *cli.Command {
	var params updateParams

	return &cli.Command{
		Name:    "update",
		Summary: "Update NixOS hosts across the tailnet",
		Description: `Update NixOS hosts over SSH.

Hosts are discovered on the tailnet by hostname prefix, selected
interactively (or with --all / --host), then updated in parallel: an
optional gate command, git pull in /etc/nixos, and nixos-rebuild from
the host's flake. A live dashboard shows per-host progress and output;
the final summary lists every host's outcome.

Discovery, SSH username, timeouts, and the transcript directory come
from the config file and can be overridden with flags.`,
		Usage: "nixfleet update [flags]",
		Examples: []cli.Example{
			{
				Description: "Pick hosts interactively and update them",
				Command:     "nixfleet update",
			},
			{
				Description: "Update the whole fleet, activating on next boot",
				Command:     "nixfleet update --all --boot",
			},
			{
				Description: "Update two specific hosts with a pre-flight gate",
				Command:     "nixfleet update --host nixweb --host nixdb --command 'systemctl is-system-running'",
			},
			{
				Description: "Scripted run with plain logs and archived transcripts",
				Command:     "nixfleet update --all --no-tui --log-dir /var/log/nixfleet",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("update", pflag.ContinueOnError)
			flags.BoolVar(&params.boot, "boot", false, "stage the new system for the next boot instead of switching now")
			flags.BoolVar(&params.forwardAgent, "forward-agent", false, "forward the local SSH agent to the remote hosts")
			flags.StringVar(&params.command, "command", "", "shell command to run on each host before the update")
			flags.BoolVar(&params.runAfter, "run-after", false, "run --command after a successful update instead of before")
			flags.StringArrayVar(&params.hosts, "host", nil, "update only this host (repeatable)")
			flags.BoolVar(&params.all, "all", false, "update every discovered host without prompting")
			flags.StringVar(&params.username, "username", "", "SSH username (overrides config)")
			flags.StringVar(&params.discover, "discover", "", "host discovery backend: cli or api (overrides config)")
			flags.StringVar(&params.logDir, "log-dir", "", "archive per-host transcripts under this directory (overrides config)")
			flags.BoolVar(&params.noTUI, "no-tui", false, "log phase transitions instead of showing the dashboard")
			flags.StringVar(&params.logLevel, "log-level", "info", "log verbosity: debug, info, warn, or error")
			flags.StringVar(&params.configPath, "config", "", "path to config file (default ~/.config/nixfleet/config.yaml)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			return run(ctx, args, &params)
		},
	}
}

func run(ctx context.Context, args []string, params *updateParams) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}

	level, err := cli.ParseLogLevel(params.logLevel)
	if err != nil {
		return cli.Validation("%w", err)
	}
	logger := cli.NewCommandLogger(level).With("command", "update")

	cfg, err := loadConfig(params)
	if err != nil {
		return err
	}

	source, err := tailnet.NewSource(string(cfg.Discovery))
	if err != nil {
		return cli.NotFound("discovery backend: %w", err)
	}
	discovered, err := tailnet.Discover(ctx, source, cfg.HostPrefix)
	if err != nil {
		return cli.Transient("discover hosts: %w", err)
	}
	if len(discovered) == 0 {
		return cli.NotFound("no hosts found with prefix %q", cfg.HostPrefix)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	var chosen []tailnet.Host
	switch {
	case len(params.hosts) > 0:
		chosen, err = filterByName(discovered, params.hosts)
		if err != nil {
			return err
		}
	case params.all:
		chosen = discovered
	default:
		if !interactive {
			return cli.Validation("not a terminal; pass --all or --host to select hosts")
		}
		chosen, err = fleetui.RunSelector(discovered)
		if err != nil {
			return err
		}
	}
	if len(chosen) == 0 {
		fmt.Println("No hosts selected.")
		return nil
	}

	tokens := tailnet.Tokens(chosen)
	tracker := progress.NewTracker(fleet.HostKeys(tokens))

	useTUI := interactive && !params.noTUI
	coordinator := &fleet.Coordinator{
		Connector: &sshexec.Dialer{Options: sshexec.Options{
			Username:       cfg.Username,
			ConnectTimeout: cfg.ConnectTimeout(),
			IOTimeout:      cfg.IOTimeout(),
			ForwardAgent:   params.forwardAgent,
		}},
		Options: fleet.Options{
			Boot:     params.boot,
			Command:  params.command,
			RunAfter: params.runAfter,
		},
	}
	if !useTUI {
		// The dashboard owns the terminal; coordinator logging is
		// only useful in plain mode.
		coordinator.Logger = logger
	}

	done := make(chan []fleet.Result, 1)
	go func() {
		done <- coordinator.Run(ctx, tokens, tracker)
	}()

	var results []fleet.Result
	if useTUI {
		interrupted, err := fleetui.RunDashboard(tracker)
		if err != nil {
			return err
		}
		if interrupted {
			fmt.Fprintln(os.Stderr, "Force quit. Remote updates keep running.")
			return &cli.ExitError{Code: 1}
		}
		results = <-done
	} else {
		results = logProgress(tracker, logger, done)
	}

	if cfg.LogDir != "" {
		archiveTranscripts(cfg.LogDir, results, logger)
	}

	if failed := printSummary(os.Stdout, results); failed {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// loadConfig resolves the effective configuration: file (explicit path
// or default location), then flag overrides, then environment
// expansion and validation.
func loadConfig(params *updateParams) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if params.configPath != "" {
		cfg, err = config.LoadFile(params.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	if params.username != "" {
		cfg.Username = params.username
	}
	if params.discover != "" {
		cfg.Discovery = config.Discovery(params.discover)
	}
	if params.logDir != "" {
		cfg.LogDir = params.logDir
	}

	cfg.Expand()
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration: %w", err)
	}
	return cfg, nil
}

// filterByName resolves --host flags against the discovered fleet,
// returning the matching hosts in hostname order. Duplicate names
// collapse to one entry; an unknown name fails the run before any
// host is touched.
func filterByName(discovered []tailnet.Host, names []string) ([]tailnet.Host, error) {
	byName := make(map[string]tailnet.Host, len(discovered))
	for _, host := range discovered {
		byName[host.Hostname] = host
	}

	seen := make(map[string]bool, len(names))
	chosen := make([]tailnet.Host, 0, len(names))
	for _, name := range names {
		host, ok := byName[name]
		if !ok {
			available := make([]string, 0, len(discovered))
			for _, h := range discovered {
				available = append(available, h.Hostname)
			}
			return nil, cli.NotFound("host %q not found in the tailnet (discovered: %s)",
				name, strings.Join(available, ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		chosen = append(chosen, host)
	}

	slices.SortFunc(chosen, func(a, b tailnet.Host) int {
		return strings.Compare(a.Hostname, b.Hostname)
	})
	return chosen, nil
}

// logProgress is the plain-output substitute for the dashboard: it
// logs each host's phase transitions until the coordinator finishes,
// then returns the results.
func logProgress(tracker *progress.Tracker, logger *slog.Logger, done <-chan []fleet.Result) []fleet.Result {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := make(map[string]progress.Phase)
	logTransitions := func() {
		for _, state := range tracker.Snapshot() {
			if phase, ok := last[state.Host]; ok && phase == state.Phase {
				continue
			}
			last[state.Host] = state.Phase
			logger.Info("host phase",
				"host", state.Host,
				"phase", state.Phase.Kind.String(),
				"detail", state.Phase.Detail)
		}
	}

	for {
		select {
		case results := <-done:
			logTransitions()
			return results
		case <-ticker.C:
			logTransitions()
		}
	}
}
