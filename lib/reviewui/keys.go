// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reviewui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the reviewer.
type KeyMap struct {
	// Navigation (context-sensitive: tree cursor or diff scrolling
	// depending on focus).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	FocusToggle key.Binding

	// Selection.
	Toggle    key.Binding
	SelectAll key.Binding

	// Operations. Both open a confirmation dialog.
	Apply   key.Binding
	Discard key.Binding

	Rescan key.Binding

	// Filter.
	FilterActivate key.Binding
	FilterClear    key.Binding

	// Dialogs.
	DialogLeft    key.Binding
	DialogRight   key.Binding
	DialogConfirm key.Binding
	DialogCancel  key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	FocusToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "switch pane"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("Space", "toggle"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "select all"),
	),
	Apply: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "apply"),
	),
	Discard: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "discard"),
	),
	Rescan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rescan"),
	),
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear filter"),
	),
	DialogLeft: key.NewBinding(
		key.WithKeys("left", "h", "shift+tab"),
		key.WithHelp("←", "previous button"),
	),
	DialogRight: key.NewBinding(
		key.WithKeys("right", "l", "tab"),
		key.WithHelp("→", "next button"),
	),
	DialogConfirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "choose"),
	),
	DialogCancel: key.NewBinding(
		key.WithKeys("esc", "n"),
		key.WithHelp("Esc", "cancel"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpBindings lists the bindings shown in the help dialog, in order.
func (keys KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.Home, keys.End,
		keys.FocusToggle, keys.Toggle, keys.SelectAll,
		keys.Apply, keys.Discard, keys.Rescan,
		keys.FilterActivate, keys.FilterClear,
		keys.Help, keys.Quit,
	}
}
