// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the global key bindings. View-local bindings (cursor
// movement, form editing) live in each view.
type KeyMap struct {
	Dashboard     key.Binding
	Knowledge     key.Binding
	Attack        key.Binding
	Safety        key.Binding
	Refresh       key.Binding
	EmergencyStop key.Binding
	Help          key.Binding
	Quit          key.Binding
}

// DefaultKeyMap returns the default global key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Knowledge: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "knowledge"),
		),
		Attack: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "attack"),
		),
		Safety: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "safety"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "f5"),
			key.WithHelp("r", "refresh"),
		),
		EmergencyStop: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "emergency stop"),
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
}

// HelpText returns the lines rendered in the help overlay.
func (k KeyMap) HelpText() []string {
	return []string{
		"Global",
		"  1-4        switch view (dashboard, knowledge, attack, safety)",
		"  r / F5     refresh all collections",
		"  ctrl+x     emergency stop (works even mid-operation)",
		"  ?          toggle this help",
		"  q          quit",
		"",
		"Knowledge",
		"  j/k, ↑/↓   move cursor",
		"  /          search the knowledge base",
		"  l          learn from a URL",
		"  v          toggle the vulnerability catalog",
		"  enter      show technique detail",
		"  esc        close detail / cancel input",
		"",
		"Attack",
		"  j/k, ↑/↓   move cursor",
		"  n          new attack plan",
		"  t          test a chatbot",
		"  s          simulate a step of the selected plan",
		"  tab        next form field",
		"  enter      submit form",
		"  esc        cancel form",
		"",
		"Safety",
		"  j/k, ↑/↓   move cursor",
		"  space      toggle selected guardrail",
		"  +/-        adjust max concurrent attacks",
		"  n          authorize a new target",
		"  a          load authorized targets",
		"  g          load audit log",
		"  s          push safety config",
	}
}
