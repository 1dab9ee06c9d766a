// Copyright (c) 2025 Redcon Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

// SwitchModeMsg requests a view change.
type SwitchModeMsg struct {
	Mode AppMode
}

// StatusMsg sets a transient message in the status bar.
type StatusMsg struct {
	Text string
}

// ConfigReloadedMsg announces that the on-disk config file changed and was
// reloaded successfully.
type ConfigReloadedMsg struct {
	Theme string
}
