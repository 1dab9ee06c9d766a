// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

// AppMode identifies the active console view.
type AppMode int

const (
	// ModeDashboard shows the operation overview.
	ModeDashboard AppMode = iota
	// ModeKnowledge browses the technique knowledge base.
	ModeKnowledge
	// ModeAttack manages attack plans and chatbot tests.
	ModeAttack
	// ModeSafety controls guardrails and the emergency stop.
	ModeSafety
)

// String returns the display name of the mode.
func (m AppMode) String() string {
	switch m {
	case ModeDashboard:
		return "Dashboard"
	case ModeKnowledge:
		return "Knowledge"
	case ModeAttack:
		return "Attack"
	case ModeSafety:
		return "Safety"
	default:
		return "Unknown"
	}
}

// ModeFromKey maps a number key to a mode. Returns false for keys that do
// not select a view.
func ModeFromKey(key string) (AppMode, bool) {
	switch key {
	case "1":
		return ModeDashboard, true
	case "2":
		return ModeKnowledge, true
	case "3":
		return ModeAttack, true
	case "4":
		return ModeSafety, true
	default:
		return ModeDashboard, false
	}
}
