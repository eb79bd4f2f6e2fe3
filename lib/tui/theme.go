// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nixfleet-dev/nixfleet/lib/progress"
)

// Theme defines the color palette for nixfleet's terminal UIs. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
//
// The fields cover universal chrome (text, selection, borders) and
// the semantic phase severities every fleet view renders: waiting,
// working, succeeded, failed.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Phase severity colors.
	Waiting lipgloss.Color
	Working lipgloss.Color
	Good    lipgloss.Color
	Bad     lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Filter match highlighting.
	MatchForeground lipgloss.Color

	// Background tints for rows that just changed. HotAdvance marks
	// forward progress, HotFail a new failure.
	HotAdvance lipgloss.Color
	HotFail    lipgloss.Color
}

// SeverityColor returns the color for a phase severity. Unknown
// values return NormalText.
func (theme Theme) SeverityColor(severity progress.Severity) lipgloss.Color {
	switch severity {
	case progress.SeverityWaiting:
		return theme.Waiting
	case progress.SeverityWorking:
		return theme.Working
	case progress.SeverityGood:
		return theme.Good
	case progress.SeverityBad:
		return theme.Bad
	default:
		return theme.NormalText
	}
}

// PhaseColor returns the color for a phase's current severity.
func (theme Theme) PhaseColor(phase progress.Phase) lipgloss.Color {
	return theme.SeverityColor(phase.Severity())
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	Waiting: lipgloss.Color("245"), // gray
	Working: lipgloss.Color("220"), // yellow/amber
	Good:    lipgloss.Color("114"), // green
	Bad:     lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	MatchForeground: lipgloss.Color("75"), // blue

	HotAdvance: lipgloss.Color("58"), // dark amber tint
	HotFail:    lipgloss.Color("52"), // dark red tint
}
