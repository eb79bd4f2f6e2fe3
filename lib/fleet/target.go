// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleet

import (
	"errors"
	"strings"
)

// Target identifies one update destination.
type Target struct {
	// Hostname is the machine name, used for display, tracking, and
	// deriving the flake attribute to build.
	Hostname string

	// Addr is the network address the SSH connection dials.
	Addr string
}

// ErrInvalidTarget reports a host token that does not carry an
// address. Its text becomes the host's failure reason, so it stays in
// the operator's vocabulary.
var ErrInvalidTarget = errors.New("Invalid server info format")

// ParseTarget splits a "hostname:address" token at the first colon,
// leaving later colons to the address.
func ParseTarget(token string) (Target, error) {
	hostname, addr, ok := strings.Cut(token, ":")
	if !ok || addr == "" {
		return Target{}, ErrInvalidTarget
	}
	return Target{Hostname: hostname, Addr: addr}, nil
}

// HostKey is the tracking identity for a token: the hostname part,
// or the whole token when it has no address. Invalid tokens still
// need a row in the progress table to report their failure on.
func HostKey(token string) string {
	key, _, _ := strings.Cut(token, ":")
	return key
}

// HostKeys maps tokens to their tracking identities, preserving
// order. Progress trackers are seeded with these before a run starts.
func HostKeys(tokens []string) []string {
	keys := make([]string, len(tokens))
	for i, token := range tokens {
		keys[i] = HostKey(token)
	}
	return keys
}

// RebuildIdentifier is the flake attribute name for the host. Fleet
// hostnames conventionally carry a "nix" prefix that the flake's
// nixosConfigurations attributes do not.
func (t Target) RebuildIdentifier() string {
	return strings.TrimPrefix(t.Hostname, "nix")
}
