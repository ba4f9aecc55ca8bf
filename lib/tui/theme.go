// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/auditbox/overlay"
)

// Theme defines the color palette for audit-box's terminal UI. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
//
// The fields cover the universal chrome (text, selection, borders) and
// the two semantic categories the reviewer draws: file status in the
// tree and line kind in the diff pane.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Cursor row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// File status badges.
	StatusNew         lipgloss.Color
	StatusModified    lipgloss.Color
	StatusUnsupported lipgloss.Color

	// Diff lines.
	DiffAddition lipgloss.Color
	DiffDeletion lipgloss.Color
	DiffHeader   lipgloss.Color
	DiffHunk     lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	Accent           lipgloss.Color // Focused scrollbar thumb and checkbox marks.

	// Background tints for paths that changed on the last rescan.
	HotAccentPut    lipgloss.Color
	HotAccentRemove lipgloss.Color

	// Fuzzy filter match highlighting.
	SearchHighlightBackground lipgloss.Color

	// Dialog boxes.
	DialogForeground lipgloss.Color
	DialogBackground lipgloss.Color

	// Status bar messages.
	WarningForeground lipgloss.Color
	ErrorForeground   lipgloss.Color
}

// StatusColor returns the badge color for a file status. Directories
// and unknown values get FaintText.
func (theme Theme) StatusColor(status overlay.Status) lipgloss.Color {
	switch status {
	case overlay.StatusNew:
		return theme.StatusNew
	case overlay.StatusModified:
		return theme.StatusModified
	case overlay.StatusUnsupported:
		return theme.StatusUnsupported
	default:
		return theme.FaintText
	}
}

// LineColor returns the foreground color for a diff line. Hunk headers
// ("@@ ... @@") are colored apart from file headers.
func (theme Theme) LineColor(line overlay.DiffLine) lipgloss.Color {
	switch line.Kind {
	case overlay.LineAddition:
		return theme.DiffAddition
	case overlay.LineDeletion:
		return theme.DiffDeletion
	case overlay.LineHeader:
		if strings.HasPrefix(line.Text, "@@") {
			return theme.DiffHunk
		}
		return theme.DiffHeader
	default:
		return theme.NormalText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusNew:         lipgloss.Color("114"), // green
	StatusModified:    lipgloss.Color("220"), // yellow/amber
	StatusUnsupported: lipgloss.Color("141"), // light purple

	DiffAddition: lipgloss.Color("114"),
	DiffDeletion: lipgloss.Color("203"),
	DiffHeader:   lipgloss.Color("255"),
	DiffHunk:     lipgloss.Color("75"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	Accent:           lipgloss.Color("220"),

	HotAccentPut:    lipgloss.Color("58"), // dark amber background tint
	HotAccentRemove: lipgloss.Color("52"), // dark red background tint

	SearchHighlightBackground: lipgloss.Color("58"),

	DialogForeground: lipgloss.Color("252"),
	DialogBackground: lipgloss.Color("237"),

	WarningForeground: lipgloss.Color("214"),
	ErrorForeground:   lipgloss.Color("196"),
}
