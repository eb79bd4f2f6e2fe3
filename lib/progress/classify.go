// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package progress

import "strings"

// rebuildDetailMax bounds the detail text extracted from a download
// line so the phase column stays narrow. Longer names are cut to
// rebuildDetailCut bytes plus an ellipsis.
const (
	rebuildDetailMax = 30
	rebuildDetailCut = 27
)

// RebuildDetail maps one line of nixos-rebuild output to a short
// progress hint, or "" when the line carries no recognizable marker.
// Matching is case-insensitive and first-match-wins. This is a
// best-effort annotator over free-text tool output: a miss is never an
// error, it only means no finer detail is available for the phase.
func RebuildDetail(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "download"):
		if name, ok := quotedName(line); ok {
			if len(name) > rebuildDetailMax {
				name = name[:rebuildDetailCut] + "..."
			}
			return "dl: " + name
		}
		return "downloading..."
	case strings.Contains(lower, "copying"):
		return "copying paths..."
	case strings.Contains(lower, "building"):
		if strings.Contains(lower, "derivation") {
			if digits := firstDigitRun(line); digits != "" {
				return "building " + digits + " drv"
			}
		}
		return "building..."
	case strings.Contains(lower, "activating"), strings.Contains(lower, "activation"):
		return "activating..."
	case strings.Contains(lower, "updating") && strings.Contains(lower, "bootloader"):
		return "updating bootloader..."
	case strings.Contains(lower, "reloading"):
		return "reloading services..."
	}
	return ""
}

// quotedName extracts the text between the first pair of single
// quotes, the form nix uses to name store paths in fetch messages.
func quotedName(line string) (string, bool) {
	start := strings.IndexByte(line, '\'')
	if start < 0 {
		return "", false
	}
	rest := line[start+1:]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// firstDigitRun returns the first maximal run of ASCII digits in line,
// or "" when the line has none.
func firstDigitRun(line string) string {
	start := -1
	for i := 0; i < len(line); i++ {
		if line[i] >= '0' && line[i] <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	end := start
	for end < len(line) && line[end] >= '0' && line[end] <= '9' {
		end++
	}
	return line[start:end]
}
