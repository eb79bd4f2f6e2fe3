// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleetui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/junegunn/fzf/src/util"

	"github.com/nixfleet-dev/nixfleet/lib/tailnet"
	"github.com/nixfleet-dev/nixfleet/lib/tui"
)

// selectorRow is one visible entry in the selector list. When a filter
// is active, positions holds the hostname rune indexes matched by the
// pattern so the view can highlight them.
type selectorRow struct {
	host      tailnet.Host
	score     int
	positions []int
}

// Selector is the interactive host picker shown before an update run.
// It lists the discovered hosts with checkboxes, supports fuzzy
// filtering over hostnames, and reports the chosen subset once the
// user confirms.
type Selector struct {
	theme tui.Theme
	keys  SelectorKeyMap

	hosts    []tailnet.Host
	selected map[string]bool

	rows   []selectorRow
	cursor int

	filterActive bool
	filterInput  string
	slab         *util.Slab

	width  int
	height int
	ready  bool

	confirmed bool
	aborted   bool
}

// NewSelector builds a selector over the given hosts. Hosts are shown
// in hostname order with nothing selected.
func NewSelector(hosts []tailnet.Host) Selector {
	ordered := slices.Clone(hosts)
	slices.SortFunc(ordered, func(a, b tailnet.Host) int {
		return strings.Compare(a.Hostname, b.Hostname)
	})
	selector := Selector{
		theme:    tui.DefaultTheme,
		keys:     DefaultSelectorKeyMap,
		hosts:    ordered,
		selected: make(map[string]bool),
		slab:     tui.NewSlab(),
	}
	selector.applyFilter()
	return selector
}

// Init implements tea.Model.
func (s Selector) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (s Selector) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		s.width = message.Width
		s.height = message.Height
		s.ready = true
		return s, nil

	case tea.KeyMsg:
		if s.filterActive {
			return s.handleFilterKey(message)
		}
		return s.handleKey(message)
	}
	return s, nil
}

// handleFilterKey routes input while the filter prompt is open. Every
// printable rune goes into the pattern, so list bindings like space
// and a are suspended until the filter is closed with enter or esc.
func (s Selector) handleFilterKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		s.filterActive = false
		s.filterInput = ""
		s.applyFilter()
	case tea.KeyEnter:
		s.filterActive = false
	case tea.KeyBackspace:
		if s.filterInput != "" {
			runes := []rune(s.filterInput)
			s.filterInput = string(runes[:len(runes)-1])
			s.applyFilter()
		}
	case tea.KeySpace:
		s.filterInput += " "
		s.applyFilter()
	case tea.KeyRunes:
		s.filterInput += string(message.Runes)
		s.applyFilter()
	case tea.KeyCtrlC:
		s.aborted = true
		return s, tea.Quit
	}
	return s, nil
}

func (s Selector) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, s.keys.Quit):
		// Esc first clears an applied filter; a second press aborts.
		if message.Type == tea.KeyEsc && s.filterInput != "" {
			s.filterInput = ""
			s.applyFilter()
			return s, nil
		}
		s.aborted = true
		return s, tea.Quit

	case key.Matches(message, s.keys.Confirm):
		s.confirmed = true
		return s, tea.Quit

	case key.Matches(message, s.keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}

	case key.Matches(message, s.keys.Down):
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}

	case key.Matches(message, s.keys.Toggle):
		if s.cursor < len(s.rows) {
			hostname := s.rows[s.cursor].host.Hostname
			s.selected[hostname] = !s.selected[hostname]
		}

	case key.Matches(message, s.keys.ToggleAll):
		s.toggleAllVisible()

	case key.Matches(message, s.keys.FilterActivate):
		s.filterActive = true
	}
	return s, nil
}

// toggleAllVisible selects every visible host, or clears them all if
// every visible host is already selected. Hosts hidden by the filter
// keep their state.
func (s *Selector) toggleAllVisible() {
	if len(s.rows) == 0 {
		return
	}
	all := true
	for _, row := range s.rows {
		if !s.selected[row.host.Hostname] {
			all = false
			break
		}
	}
	for _, row := range s.rows {
		s.selected[row.host.Hostname] = !all
	}
}

// applyFilter rebuilds the visible rows from the current pattern. An
// empty pattern shows every host in hostname order; otherwise rows are
// ranked by match score with hostname as the tiebreak.
func (s *Selector) applyFilter() {
	s.rows = s.rows[:0]
	if s.filterInput == "" {
		for _, host := range s.hosts {
			s.rows = append(s.rows, selectorRow{host: host})
		}
	} else {
		pattern := []rune(s.filterInput)
		for _, host := range s.hosts {
			match := tui.FuzzyMatch(host.Hostname, pattern, s.slab)
			if match.Score <= 0 {
				continue
			}
			s.rows = append(s.rows, selectorRow{
				host:      host,
				score:     match.Score,
				positions: match.Positions,
			})
		}
		slices.SortStableFunc(s.rows, func(a, b selectorRow) int {
			return b.score - a.score
		})
	}
	if s.cursor >= len(s.rows) {
		s.cursor = 0
	}
}

// View implements tea.Model.
func (s Selector) View() string {
	if !s.ready {
		return "Loading..."
	}

	headerStyle := lipgloss.NewStyle().Foreground(s.theme.HeaderForeground).Bold(true)
	faintStyle := lipgloss.NewStyle().Foreground(s.theme.FaintText)
	helpStyle := lipgloss.NewStyle().Foreground(s.theme.HelpText)

	var view strings.Builder
	view.WriteString(headerStyle.Render(fmt.Sprintf("Select hosts to update (%d selected)", s.selectedCount())))
	view.WriteString("\n")

	switch {
	case s.filterActive:
		view.WriteString("/" + s.filterInput + "█")
		view.WriteString("\n")
	case s.filterInput != "":
		view.WriteString(faintStyle.Render("filter: " + s.filterInput))
		view.WriteString("\n")
	}

	if len(s.rows) == 0 {
		view.WriteString(faintStyle.Render("No matching hosts."))
		view.WriteString("\n")
	}

	for index, row := range s.rows {
		view.WriteString(s.renderRow(row, index == s.cursor))
		view.WriteString("\n")
	}

	view.WriteString(helpStyle.Render("space toggle · a all · / filter · enter confirm · q abort"))
	return view.String()
}

func (s Selector) renderRow(row selectorRow, current bool) string {
	marker := "  "
	if current {
		marker = "> "
	}
	checkbox := "[ ] "
	if s.selected[row.host.Hostname] {
		checkbox = "[x] "
	}

	normal := lipgloss.NewStyle().Foreground(s.theme.NormalText)
	faint := lipgloss.NewStyle().Foreground(s.theme.FaintText)
	match := lipgloss.NewStyle().Foreground(s.theme.MatchForeground).Bold(true)
	if current {
		base := lipgloss.NewStyle().
			Background(s.theme.SelectedBackground).
			Foreground(s.theme.SelectedForeground)
		normal = base
		faint = base
		match = base.Bold(true).Foreground(s.theme.MatchForeground)
	}

	hostname := highlight(row.host.Hostname, row.positions, normal, match)
	detail := ""
	if len(row.host.Addrs) > 0 {
		detail += " " + row.host.Addrs[0]
	}
	if row.host.OS != "" {
		detail += " (" + row.host.OS + ")"
	}

	line := normal.Render(marker+checkbox) + hostname + faint.Render(detail)
	if s.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(s.width).Render(line)
	}
	return line
}

// highlight renders text with the runes at the given indexes styled as
// matches. Positions are hostname rune offsets from the fuzzy matcher.
func highlight(text string, positions []int, normal, match lipgloss.Style) string {
	if len(positions) == 0 {
		return normal.Render(text)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}
	var out strings.Builder
	for index, r := range []rune(text) {
		if matched[index] {
			out.WriteString(match.Render(string(r)))
		} else {
			out.WriteString(normal.Render(string(r)))
		}
	}
	return out.String()
}

func (s Selector) selectedCount() int {
	count := 0
	for _, chosen := range s.selected {
		if chosen {
			count++
		}
	}
	return count
}

// Aborted reports whether the user quit without confirming.
func (s Selector) Aborted() bool {
	return s.aborted && !s.confirmed
}

// Selection returns the confirmed hosts in hostname order. It is empty
// when the user aborted or confirmed with nothing selected.
func (s Selector) Selection() []tailnet.Host {
	if s.Aborted() {
		return nil
	}
	var chosen []tailnet.Host
	for _, host := range s.hosts {
		if s.selected[host.Hostname] {
			chosen = append(chosen, host)
		}
	}
	return chosen
}

// RunSelector drives the selector to completion on the attached
// terminal and returns the chosen hosts. An abort returns an empty
// selection and no error.
func RunSelector(hosts []tailnet.Host) ([]tailnet.Host, error) {
	program := tea.NewProgram(NewSelector(hosts), tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("host selection: %w", err)
	}
	selector, ok := final.(Selector)
	if !ok {
		return nil, fmt.Errorf("host selection: unexpected model %T", final)
	}
	return selector.Selection(), nil
}
