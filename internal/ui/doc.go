// Package ui implements the terminal side of the interactive prompts.
//
// [Console] answers the prompts raised while resolving tracks: numbered choices, yes/no questions,
// pasted links and candidate tables rendered with lipgloss. Attached to a terminal, choices open a
// bubbletea list picker with vim-style bindings (j/k, enter, esc) instead.
//
// [WatchProgress] prints progress updates sent by the sync and backup operations.
package ui
