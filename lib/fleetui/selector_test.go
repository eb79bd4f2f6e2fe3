// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package fleetui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nixfleet-dev/nixfleet/lib/tailnet"
)

func selectorHosts() []tailnet.Host {
	return []tailnet.Host{
		{Hostname: "nixweb", Addrs: []string{"100.64.0.1"}, Online: true, OS: "linux"},
		{Hostname: "nixdb", Addrs: []string{"100.64.0.2"}, Online: true, OS: "linux"},
		{Hostname: "nixmon", Addrs: []string{"100.64.0.3"}, Online: true, OS: "linux"},
	}
}

func updateSelector(t *testing.T, selector Selector, message tea.Msg) Selector {
	t.Helper()
	updated, _ := selector.Update(message)
	next, ok := updated.(Selector)
	if !ok {
		t.Fatalf("Update returned %T, want Selector", updated)
	}
	return next
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func hostnames(hosts []tailnet.Host) []string {
	names := make([]string, 0, len(hosts))
	for _, host := range hosts {
		names = append(names, host.Hostname)
	}
	return names
}

func TestSelectorViewLoading(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	if view := selector.View(); view != "Loading..." {
		t.Fatalf("view before window size = %q, want Loading...", view)
	}
}

func TestSelectorViewListsHosts(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.WindowSizeMsg{Width: 100, Height: 24})

	view := selector.View()
	for _, want := range []string{"Select hosts to update", "nixdb", "nixmon", "nixweb", "100.64.0.1", "(linux)", "[ ]", "enter confirm"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSelectorToggle(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.WindowSizeMsg{Width: 100, Height: 24})

	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	if !strings.Contains(selector.View(), "[x]") {
		t.Fatal("space did not mark the current host selected")
	}

	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})
	got := hostnames(selector.Selection())
	if len(got) != 1 || got[0] != "nixdb" {
		t.Fatalf("Selection() = %v, want [nixdb]", got)
	}
}

func TestSelectorToggleTwiceClears(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	if got := selector.Selection(); len(got) != 0 {
		t.Fatalf("Selection() after double toggle = %v, want empty", hostnames(got))
	}
}

func TestSelectorCursorMovement(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('j'))
	selector = updateSelector(t, selector, keyRune('j'))
	// Cursor is on the last row; a further move must not run off the
	// end.
	selector = updateSelector(t, selector, keyRune('j'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	if len(got) != 1 || got[0] != "nixweb" {
		t.Fatalf("Selection() = %v, want [nixweb]", got)
	}
}

func TestSelectorCursorClampsAtTop(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('k'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	if len(got) != 1 || got[0] != "nixdb" {
		t.Fatalf("Selection() = %v, want [nixdb]", got)
	}
}

func TestSelectorToggleAll(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	want := []string{"nixdb", "nixmon", "nixweb"}
	if len(got) != len(want) {
		t.Fatalf("Selection() = %v, want %v", got, want)
	}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("Selection() = %v, want %v", got, want)
		}
	}
}

func TestSelectorToggleAllClearsWhenAllSelected(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	if got := selector.Selection(); len(got) != 0 {
		t.Fatalf("Selection() = %v, want empty", hostnames(got))
	}
}

func TestSelectorFilterNarrowsAndToggles(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.WindowSizeMsg{Width: 100, Height: 24})
	// Move the cursor to the bottom first so the filter has to clamp
	// it back into the narrowed list.
	selector = updateSelector(t, selector, keyRune('j'))
	selector = updateSelector(t, selector, keyRune('j'))

	selector = updateSelector(t, selector, keyRune('/'))
	for _, r := range "web" {
		selector = updateSelector(t, selector, keyRune(r))
	}

	view := selector.View()
	if !strings.Contains(view, "nixweb") {
		t.Fatalf("filtered view missing nixweb:\n%s", view)
	}
	if strings.Contains(view, "nixdb") || strings.Contains(view, "nixmon") {
		t.Fatalf("filtered view still shows non-matching hosts:\n%s", view)
	}

	// Close the filter prompt, then toggle and confirm.
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	if len(got) != 1 || got[0] != "nixweb" {
		t.Fatalf("Selection() = %v, want [nixweb]", got)
	}
}

func TestSelectorFilterKeepsHiddenSelections(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	// Select everything, then toggle-all inside a filter that matches
	// only one host. The hidden hosts must stay selected.
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, keyRune('/'))
	for _, r := range "web" {
		selector = updateSelector(t, selector, keyRune(r))
	}
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	want := []string{"nixdb", "nixmon"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Selection() = %v, want %v", got, want)
	}
}

func TestSelectorFilterEscCancels(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('/'))
	for _, r := range "web" {
		selector = updateSelector(t, selector, keyRune(r))
	}
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEsc})

	// All hosts are visible again.
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})
	if got := selector.Selection(); len(got) != 3 {
		t.Fatalf("Selection() after filter cancel = %v, want all 3", hostnames(got))
	}
}

func TestSelectorFilterBackspace(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.WindowSizeMsg{Width: 100, Height: 24})
	selector = updateSelector(t, selector, keyRune('/'))
	for _, r := range "webx" {
		selector = updateSelector(t, selector, keyRune(r))
	}
	if view := selector.View(); !strings.Contains(view, "No matching hosts.") {
		t.Fatalf("view for impossible pattern should be empty:\n%s", view)
	}

	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyBackspace})
	if view := selector.View(); !strings.Contains(view, "nixweb") {
		t.Fatalf("backspace did not restore the match:\n%s", view)
	}
}

func TestSelectorFilterSwallowsListKeys(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, keyRune('/'))
	// While typing a pattern, q must not abort and a must not
	// toggle-all.
	selector = updateSelector(t, selector, keyRune('q'))
	selector = updateSelector(t, selector, keyRune('a'))

	if selector.Aborted() {
		t.Fatal("q inside the filter prompt aborted the selector")
	}
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEsc})
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})
	if got := selector.Selection(); len(got) != 0 {
		t.Fatalf("a inside the filter prompt changed selection: %v", hostnames(got))
	}
}

func TestSelectorEscClearsAppliedFilterBeforeAborting(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	selector = updateSelector(t, selector, tea.WindowSizeMsg{Width: 100, Height: 24})
	selector = updateSelector(t, selector, keyRune('/'))
	selector = updateSelector(t, selector, keyRune('w'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	// First esc clears the applied filter.
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEsc})
	if selector.Aborted() {
		t.Fatal("esc with an applied filter aborted instead of clearing")
	}
	if view := selector.View(); !strings.Contains(view, "nixdb") {
		t.Fatalf("filter not cleared:\n%s", view)
	}

	// Second esc aborts.
	updated, command := selector.Update(tea.KeyMsg{Type: tea.KeyEsc})
	selector = updated.(Selector)
	if !selector.Aborted() {
		t.Fatal("second esc did not abort")
	}
	if command == nil {
		t.Fatal("abort returned no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Fatal("abort command is not tea.Quit")
	}
}

func TestSelectorAbort(t *testing.T) {
	t.Parallel()

	for _, message := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		selector := NewSelector(selectorHosts())
		selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeySpace})

		updated, command := selector.Update(message)
		selector = updated.(Selector)
		if !selector.Aborted() {
			t.Errorf("key %v did not abort", message)
		}
		if got := selector.Selection(); got != nil {
			t.Errorf("Selection() after abort = %v, want nil", hostnames(got))
		}
		if command == nil {
			t.Errorf("key %v returned no quit command", message)
			continue
		}
		if _, ok := command().(tea.QuitMsg); !ok {
			t.Errorf("key %v command is not tea.Quit", message)
		}
	}
}

func TestSelectorConfirmQuits(t *testing.T) {
	t.Parallel()

	selector := NewSelector(selectorHosts())
	updated, command := selector.Update(tea.KeyMsg{Type: tea.KeyEnter})
	selector = updated.(Selector)

	if selector.Aborted() {
		t.Fatal("enter marked the selector aborted")
	}
	if command == nil {
		t.Fatal("enter returned no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Fatal("enter command is not tea.Quit")
	}
}

func TestSelectorSelectionSortedByHostname(t *testing.T) {
	t.Parallel()

	// Constructor input is deliberately unsorted.
	hosts := []tailnet.Host{
		{Hostname: "nixweb", Addrs: []string{"100.64.0.1"}},
		{Hostname: "nixmon", Addrs: []string{"100.64.0.3"}},
		{Hostname: "nixdb", Addrs: []string{"100.64.0.2"}},
	}
	selector := NewSelector(hosts)
	selector = updateSelector(t, selector, keyRune('a'))
	selector = updateSelector(t, selector, tea.KeyMsg{Type: tea.KeyEnter})

	got := hostnames(selector.Selection())
	want := []string{"nixdb", "nixmon", "nixweb"}
	for index := range want {
		if got[index] != want[index] {
			t.Fatalf("Selection() = %v, want %v", got, want)
		}
	}
}
