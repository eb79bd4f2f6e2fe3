// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleetui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nixfleet-dev/nixfleet/lib/progress"
	"github.com/nixfleet-dev/nixfleet/lib/tui"
)

const (
	// snapshotInterval is how often the dashboard polls the tracker.
	snapshotInterval = 100 * time.Millisecond

	wheelScrollLines = 3
	pageScrollLines  = 5

	noOutputText     = "No output yet..."
	manualScrollNote = " [Manual Scroll - PgDn to resume auto-scroll]"
)

// spinnerFrames animates hosts whose update is in flight.
var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// snapshotTickMsg triggers a tracker poll and spinner advance.
type snapshotTickMsg struct{}

func snapshotTick() tea.Cmd {
	return tea.Tick(snapshotInterval, func(time.Time) tea.Msg {
		return snapshotTickMsg{}
	})
}

// focusRegion identifies which pane receives navigation keys.
type focusRegion int

const (
	focusHosts focusRegion = iota
	focusOutput
)

// Dashboard is the live fleet view shown while updates run. The left
// pane lists every host with its current phase; the right pane shows
// the selected host's transcript, following new output until the user
// scrolls away.
type Dashboard struct {
	theme tui.Theme
	keys  DashboardKeyMap

	tracker *progress.Tracker
	states  []progress.HostState
	heat    *tui.HeatTracker

	cursor     int
	focus      focusRegion
	viewport   viewport.Model
	autoFollow bool

	allDone     bool
	ctrlCArmed  bool
	interrupted bool
	frame       int

	width     int
	height    int
	listWidth int
	ready     bool
}

// NewDashboard builds a dashboard over the tracker. The tracker keeps
// updating from coordinator events while the dashboard polls it.
func NewDashboard(tracker *progress.Tracker) Dashboard {
	return Dashboard{
		theme:      tui.DefaultTheme,
		keys:       DefaultDashboardKeyMap,
		tracker:    tracker,
		states:     tracker.Snapshot(),
		heat:       tui.NewHeatTracker(),
		autoFollow: true,
	}
}

// Init implements tea.Model.
func (d Dashboard) Init() tea.Cmd {
	return snapshotTick()
}

// Update implements tea.Model.
func (d Dashboard) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case snapshotTickMsg:
		previous := make(map[string]progress.Kind, len(d.states))
		for _, state := range d.states {
			previous[state.Host] = state.Phase.Kind
		}
		d.states = d.tracker.Snapshot()
		now := time.Now()
		for _, state := range d.states {
			// Detail churn within a phase does not re-ignite; only
			// kind transitions flash the row.
			if before, seen := previous[state.Host]; seen && before != state.Phase.Kind {
				kind := tui.HeatAdvance
				if state.Phase.Kind == progress.KindFailed {
					kind = tui.HeatFail
				}
				d.heat.Ignite(state.Host, kind, now)
			}
		}
		d.allDone = d.tracker.AllTerminal()
		d.frame++
		d.refreshOutput()
		return d, snapshotTick()

	case tea.WindowSizeMsg:
		d.width = message.Width
		d.height = message.Height
		d.listWidth = d.width * 40 / 100
		if d.listWidth < 20 {
			d.listWidth = 20
		}
		// One column on the far right is reserved for the scrollbar.
		outputWidth := d.width - d.listWidth - 1
		if outputWidth < 0 {
			outputWidth = 0
		}
		bodyHeight := d.height - 2
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		if !d.ready {
			d.viewport = viewport.New(outputWidth, bodyHeight)
			d.ready = true
		} else {
			d.viewport.Width = outputWidth
			d.viewport.Height = bodyHeight
		}
		d.refreshOutput()
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(message)

	case tea.MouseMsg:
		return d.handleMouse(message)
	}
	return d, nil
}

func (d Dashboard) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, d.keys.ForceQuit):
		// Once every host is terminal a single press quits. While
		// updates run the first press arms a warning and the second
		// abandons the dashboard; remote processes keep running.
		if d.allDone {
			return d, tea.Quit
		}
		if d.ctrlCArmed {
			d.interrupted = true
			return d, tea.Quit
		}
		d.ctrlCArmed = true

	case key.Matches(message, d.keys.Quit):
		if d.allDone {
			return d, tea.Quit
		}

	case key.Matches(message, d.keys.FocusToggle):
		if d.focus == focusHosts {
			d.focus = focusOutput
		} else {
			d.focus = focusHosts
		}

	case key.Matches(message, d.keys.Up):
		if d.focus == focusHosts {
			d.selectHost(d.cursor - 1)
		} else {
			d.viewport.LineUp(1)
			d.autoFollow = false
		}

	case key.Matches(message, d.keys.Down):
		if d.focus == focusHosts {
			d.selectHost(d.cursor + 1)
		} else {
			d.viewport.LineDown(1)
			d.syncFollow()
		}

	case key.Matches(message, d.keys.PageUp):
		d.viewport.LineUp(pageScrollLines)
		d.autoFollow = false

	case key.Matches(message, d.keys.PageDown):
		d.viewport.LineDown(pageScrollLines)
		d.syncFollow()

	case key.Matches(message, d.keys.Top):
		d.viewport.GotoTop()
		d.autoFollow = false

	case key.Matches(message, d.keys.Bottom):
		d.viewport.GotoBottom()
		d.autoFollow = true
	}
	return d, nil
}

func (d Dashboard) handleMouse(message tea.MouseMsg) (tea.Model, tea.Cmd) {
	if message.Action != tea.MouseActionPress {
		return d, nil
	}
	switch message.Button {
	case tea.MouseButtonWheelUp:
		d.viewport.LineUp(wheelScrollLines)
		d.autoFollow = false

	case tea.MouseButtonWheelDown:
		d.viewport.LineDown(wheelScrollLines)
		d.syncFollow()

	case tea.MouseButtonLeft:
		// Host rows start below the pane title.
		if message.X < d.listWidth {
			d.focus = focusHosts
			index := message.Y - 1
			if index >= 0 && index < len(d.states) {
				d.selectHost(index)
			}
		} else {
			d.focus = focusOutput
		}
	}
	return d, nil
}

// selectHost moves the host cursor and resets the output pane to the
// newly selected host, re-engaging auto-follow.
func (d *Dashboard) selectHost(index int) {
	if index < 0 || index >= len(d.states) {
		return
	}
	d.cursor = index
	d.autoFollow = true
	d.refreshOutput()
}

// syncFollow re-engages auto-follow when a downward scroll lands on
// the last line.
func (d *Dashboard) syncFollow() {
	d.autoFollow = d.viewport.AtBottom()
}

// refreshOutput pushes the selected host's transcript into the
// viewport. With auto-follow on the view sticks to the newest line;
// otherwise the scroll position is preserved while content grows.
func (d *Dashboard) refreshOutput() {
	if !d.ready {
		return
	}
	content := noOutputText
	if d.cursor < len(d.states) && d.states[d.cursor].Output != "" {
		content = d.states[d.cursor].Output
	}
	d.viewport.SetContent(content)
	if d.autoFollow {
		d.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (d Dashboard) View() string {
	if !d.ready {
		return "Loading..."
	}

	headerStyle := lipgloss.NewStyle().Foreground(d.theme.HeaderForeground).Bold(true)

	now := time.Now()
	leftTitle := headerStyle.Render(truncate(fmt.Sprintf("Hosts (%d/%d done)", d.doneCount(), len(d.states)), d.listWidth))
	lines := []string{leftTitle}
	for index, state := range d.states {
		lines = append(lines, d.renderHostRow(state, index == d.cursor, now))
	}
	left := lipgloss.NewStyle().Width(d.listWidth).Render(strings.Join(lines, "\n"))

	title := "Output: " + d.selectedHostname()
	if !d.autoFollow {
		title += manualScrollNote
	}
	scrollbar := tui.RenderScrollbar(d.theme, d.viewport.Height,
		d.viewport.TotalLineCount(), d.viewport.Height, d.viewport.YOffset,
		d.focus == focusOutput)
	right := headerStyle.Render(truncate(title, d.viewport.Width)) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, d.viewport.View(), scrollbar)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return body + "\n" + d.footer()
}

func (d Dashboard) renderHostRow(state progress.HostState, current bool, now time.Time) string {
	marker := "  "
	if current {
		marker = "> "
	}
	icon := " "
	switch state.Phase.Severity() {
	case progress.SeverityWorking:
		icon = string(spinnerFrames[d.frame%len(spinnerFrames)])
	case progress.SeverityWaiting:
		icon = "·"
	}

	style := lipgloss.NewStyle().Foreground(d.theme.PhaseColor(state.Phase))
	if current {
		style = lipgloss.NewStyle().
			Background(d.theme.SelectedBackground).
			Foreground(d.theme.SelectedForeground)
	}

	// Rows that recently changed phase get a background tint. The
	// selection highlight takes priority over the tint.
	wrapper := lipgloss.NewStyle().Width(d.listWidth).MaxWidth(d.listWidth)
	if !current && d.heat.Heat(state.Host, now) > 0 {
		accent := d.theme.HotAdvance
		if d.heat.Kind(state.Host) == tui.HeatFail {
			accent = d.theme.HotFail
		}
		wrapper = wrapper.Background(accent)
	}

	row := truncate(fmt.Sprintf("%s%s %s  %s", marker, icon, state.Host, state.Phase.Label()), d.listWidth)
	return wrapper.Render(style.Render(row))
}

func (d Dashboard) footer() string {
	switch {
	case d.ctrlCArmed && !d.allDone:
		return lipgloss.NewStyle().Foreground(d.theme.Bad).Bold(true).
			Render("Ctrl+C again to force quit (remote updates keep running)")
	case d.allDone:
		return lipgloss.NewStyle().Foreground(d.theme.Good).
			Render("All updates complete - press q to exit")
	default:
		return lipgloss.NewStyle().Foreground(d.theme.HelpText).
			Render("tab pane · j/k hosts · PgUp/PgDn scroll · ctrl+c quit")
	}
}

func (d Dashboard) selectedHostname() string {
	if d.cursor < len(d.states) {
		return d.states[d.cursor].Host
	}
	return ""
}

func (d Dashboard) doneCount() int {
	count := 0
	for _, state := range d.states {
		if state.Phase.Terminal() {
			count++
		}
	}
	return count
}

// Interrupted reports whether the user force-quit while updates were
// still running.
func (d Dashboard) Interrupted() bool {
	return d.interrupted
}

// truncate shortens text to the given display width, ending with an
// ellipsis when anything was cut.
func truncate(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	var out strings.Builder
	used := 0
	for _, r := range text {
		runeWidth := lipgloss.Width(string(r))
		if used+runeWidth > width-1 {
			break
		}
		out.WriteRune(r)
		used += runeWidth
	}
	return out.String() + "…"
}

// RunDashboard drives the dashboard on the attached terminal until the
// user exits. It reports whether the user force-quit while updates
// were still in flight.
func RunDashboard(tracker *progress.Tracker) (interrupted bool, err error) {
	program := tea.NewProgram(NewDashboard(tracker), tea.WithAltScreen(), tea.WithMouseAllMotion())
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("dashboard: %w", err)
	}
	dashboard, ok := final.(Dashboard)
	if !ok {
		return false, fmt.Errorf("dashboard: unexpected model %T", final)
	}
	return dashboard.Interrupted(), nil
}
