// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package hosts implements "nixfleet hosts", which lists the fleet
// members discovered on the tailnet without touching them.
package hosts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/nixfleet-dev/nixfleet/cmd/nixfleet/cli"
	"github.com/nixfleet-dev/nixfleet/lib/config"
	"github.com/nixfleet-dev/nixfleet/lib/fleet"
	"github.com/nixfleet-dev/nixfleet/lib/tailnet"
)

// hostsParams holds the flag values for the hosts command.
type hostsParams struct {
	discover   string
	jsonOut    bool
	configPath string
}

// hostRow is the JSON shape for one discovered host.
type hostRow struct {
	Hostname   string   `json:"hostname"`
	Addresses  []string `json:"addresses"`
	OS         string   `json:"os,omitempty"`
	Identifier string   `json:"identifier"`
}

// Command returns the "hosts" command.
func Command() *cli.Command {
	var params hostsParams

	return &cli.Command{
		Name:    "hosts",
		Summary: "List fleet hosts discovered on the tailnet",
		Description: `List the NixOS hosts an update run would target.

Hosts are discovered the same way "nixfleet update" discovers them:
tailnet machines whose hostname carries the configured prefix, online,
with an address, excluding the machine running this command. The
identifier column is the flake attribute a rebuild would use.`,
		Usage: "nixfleet hosts [flags]",
		Examples: []cli.Example{
			{
				Description: "List the fleet",
				Command:     "nixfleet hosts",
			},
			{
				Description: "List via the admin API, as JSON",
				Command:     "nixfleet hosts --discover api --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("hosts", pflag.ContinueOnError)
			flags.StringVar(&params.discover, "discover", "", "host discovery backend: cli or api (overrides config)")
			flags.BoolVar(&params.jsonOut, "json", false, "emit the host list as JSON")
			flags.StringVar(&params.configPath, "config", "", "path to config file (default ~/.config/nixfleet/config.yaml)")
			return flags
		},
		Run: func(ctx context.Context, args []string) error {
			return run(ctx, args, &params)
		},
	}
}

func run(ctx context.Context, args []string, params *hostsParams) error {
	if len(args) > 0 {
		return cli.Validation("unexpected argument: %s", args[0])
	}

	var cfg *config.Config
	var err error
	if params.configPath != "" {
		cfg, err = config.LoadFile(params.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cli.Validation("%w", err)
	}
	if params.discover != "" {
		cfg.Discovery = config.Discovery(params.discover)
	}
	cfg.Expand()
	if err := cfg.Validate(); err != nil {
		return cli.Validation("invalid configuration: %w", err)
	}

	source, err := tailnet.NewSource(string(cfg.Discovery))
	if err != nil {
		return cli.NotFound("discovery backend: %w", err)
	}
	discovered, err := tailnet.Discover(ctx, source, cfg.HostPrefix)
	if err != nil {
		return cli.Transient("discover hosts: %w", err)
	}

	return render(os.Stdout, discovered, params.jsonOut)
}

// render writes the host list as a table or JSON.
func render(w io.Writer, hosts []tailnet.Host, asJSON bool) error {
	if asJSON {
		rows := make([]hostRow, 0, len(hosts))
		for _, host := range hosts {
			rows = append(rows, hostRow{
				Hostname:   host.Hostname,
				Addresses:  host.Addrs,
				OS:         host.OS,
				Identifier: identifier(host),
			})
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	if len(hosts) == 0 {
		fmt.Fprintln(w, "No hosts found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "HOSTNAME\tADDRESS\tOS\tIDENTIFIER")
	for _, host := range hosts {
		addr := ""
		if len(host.Addrs) > 0 {
			addr = host.Addrs[0]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", host.Hostname, addr, host.OS, identifier(host))
	}
	return tw.Flush()
}

// identifier is the flake attribute a rebuild of this host would use.
func identifier(host tailnet.Host) string {
	return fleet.Target{Hostname: host.Hostname}.RebuildIdentifier()
}
