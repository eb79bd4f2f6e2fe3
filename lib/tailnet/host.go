// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tailnet

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// DefaultPrefix marks fleet members among tailnet machines.
const DefaultPrefix = "nix"

// Host is one machine visible on the tailnet.
type Host struct {
	// Hostname is the machine's own name, without the tailnet domain.
	Hostname string

	// Addrs are the machine's tailnet addresses, IPv4 first by
	// Tailscale convention.
	Addrs []string

	// Online reports whether the machine is currently reachable.
	Online bool

	// OS is the operating system Tailscale reports for the machine.
	OS string

	// Self marks the node running this process. Only the CLI backend
	// can tell; API-sourced hosts always leave it false.
	Self bool
}

// Token renders the host as an update target token. Hosts returned
// by Discover always carry an address.
func (h Host) Token() string {
	addr := ""
	if len(h.Addrs) > 0 {
		addr = h.Addrs[0]
	}
	return h.Hostname + ":" + addr
}

// Source lists the machines on a tailnet.
type Source interface {
	List(ctx context.Context) ([]Host, error)
}

// NewSource returns the discovery backend named by kind: "cli" runs
// the local tailscale binary, "api" queries the admin API with
// credentials from the environment.
func NewSource(kind string) (Source, error) {
	switch kind {
	case "cli":
		binary, err := FindBinary()
		if err != nil {
			return nil, err
		}
		return &CLIStatus{Binary: binary}, nil
	case "api":
		creds, err := LoadCredentials()
		if err != nil {
			return nil, err
		}
		return NewAPISource(creds), nil
	default:
		return nil, fmt.Errorf("unknown discovery backend %q (expected cli or api)", kind)
	}
}

// Discover lists machines from source and keeps the reachable fleet
// members: online, at least one address, hostname carrying prefix,
// and never the node running this process. Results are sorted by
// hostname so selection menus are stable between runs.
func Discover(ctx context.Context, source Source, prefix string) ([]Host, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	machines, err := source.List(ctx)
	if err != nil {
		return nil, err
	}
	var fleet []Host
	for _, host := range machines {
		if host.Self || !strings.HasPrefix(host.Hostname, prefix) || len(host.Addrs) == 0 || !host.Online {
			continue
		}
		fleet = append(fleet, host)
	}
	slices.SortFunc(fleet, func(a, b Host) int {
		return strings.Compare(a.Hostname, b.Hostname)
	})
	return fleet, nil
}

// Tokens maps hosts to their target tokens, preserving order.
func Tokens(hosts []Host) []string {
	tokens := make([]string, len(hosts))
	for i, host := range hosts {
		tokens[i] = host.Token()
	}
	return tokens
}
