// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete nixfleet CLI command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/nixfleet-dev/nixfleet/cmd/nixfleet/cli"
	hostscmd "github.com/nixfleet-dev/nixfleet/cmd/nixfleet/hosts"
	updatecmd "github.com/nixfleet-dev/nixfleet/cmd/nixfleet/update"
	"github.com/nixfleet-dev/nixfleet/lib/version"
)

// Root builds and returns the complete nixfleet CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "nixfleet",
		Description: `nixfleet: parallel NixOS updates over Tailscale.

Discover fleet hosts on the tailnet, then pull and rebuild their NixOS
configurations over SSH with live per-host progress.`,
		Subcommands: []*cli.Command{
			updatecmd.Command(),
			hostscmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string) error {
					fmt.Printf("nixfleet %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "See which hosts an update would target",
				Command:     "nixfleet hosts",
			},
			{
				Description: "Pick hosts interactively and update them",
				Command:     "nixfleet update",
			},
			{
				Description: "Update the whole fleet for the next boot",
				Command:     "nixfleet update --all --boot",
			},
			{
				Description: "Scripted fleet update with archived transcripts",
				Command:     "nixfleet update --all --no-tui --log-dir /var/log/nixfleet",
			},
		},
	}
}
