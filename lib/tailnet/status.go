// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tailnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// systemBinDir is where distribution packages install the tailscale
// CLI when it is not on PATH.
const systemBinDir = "/usr/sbin"

// FindBinary resolves the tailscale CLI, checking PATH first and then
// the system binary directory. Returns the absolute path.
func FindBinary() (string, error) {
	if path, err := exec.LookPath("tailscale"); err == nil {
		return path, nil
	}

	systemPath := filepath.Join(systemBinDir, "tailscale")
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath, nil
	}

	return "", fmt.Errorf("tailscale not found on PATH or at %s", systemPath)
}

// CLIStatus lists tailnet machines by querying the local tailscaled
// through the tailscale binary.
type CLIStatus struct {
	// Binary overrides CLI resolution. Empty means FindBinary.
	Binary string
}

// statusDoc is the slice of "tailscale status --json" this package
// reads. Peers carry the fleet; Self is the machine running us.
type statusDoc struct {
	Self statusNode            `json:"Self"`
	Peer map[string]statusNode `json:"Peer"`
}

type statusNode struct {
	HostName     string   `json:"HostName"`
	OS           string   `json:"OS"`
	TailscaleIPs []string `json:"TailscaleIPs"`
	Online       bool     `json:"Online"`
}

func (n statusNode) host(self bool) Host {
	return Host{
		Hostname: n.HostName,
		Addrs:    n.TailscaleIPs,
		Online:   n.Online,
		OS:       n.OS,
		Self:     self,
	}
}

// List runs "tailscale status --json" and returns every node,
// including the local one marked Self.
func (s *CLIStatus) List(ctx context.Context) ([]Host, error) {
	binary := s.Binary
	if binary == "" {
		resolved, err := FindBinary()
		if err != nil {
			return nil, err
		}
		binary = resolved
	}

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, binary, "status", "--json")
	command.Stdout = &stdout
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return nil, formatError(stderr.Bytes(), err)
	}

	return parseStatus(stdout.Bytes())
}

func parseStatus(data []byte) ([]Host, error) {
	var doc statusDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tailscale status: %w", err)
	}
	hosts := make([]Host, 0, len(doc.Peer)+1)
	if doc.Self.HostName != "" {
		hosts = append(hosts, doc.Self.host(true))
	}
	for _, peer := range doc.Peer {
		hosts = append(hosts, peer.host(false))
	}
	return hosts, nil
}

// formatError prefers the CLI's stderr, which carries the actual
// diagnosis ("Tailscale is stopped" and friends), over the generic
// exec error.
func formatError(stderr []byte, err error) error {
	if text := strings.TrimSpace(string(stderr)); text != "" {
		return fmt.Errorf("tailscale status: %s", text)
	}
	return fmt.Errorf("tailscale status: %w", err)
}
