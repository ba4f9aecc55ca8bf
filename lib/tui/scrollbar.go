// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Scrollbar describes one pane's scroll position in rows.
type Scrollbar struct {
	Height  int // Rows available to the scrollbar.
	Total   int // Rows of content.
	Visible int // Rows of content on screen.
	Offset  int // First visible content row.
	Focused bool
}

// thumb returns the first row and row count of the thumb. When content
// fits, the thumb spans the whole track.
func (bar Scrollbar) thumb() (offset, size int) {
	if bar.Total <= bar.Visible || bar.Total <= 0 {
		return 0, bar.Height
	}

	size = max(bar.Height*bar.Visible/bar.Total, 1)

	scrollable := bar.Total - bar.Visible
	track := bar.Height - size
	if scrollable > 0 && track > 0 {
		offset = bar.Offset * track / scrollable
	}
	if offset+size > bar.Height {
		offset = bar.Height - size
	}
	return max(offset, 0), size
}

// Render produces a single-column scrollbar, one line per row. The
// thumb uses the accent color when the pane is focused.
func (bar Scrollbar) Render(theme Theme) string {
	if bar.Height <= 0 {
		return ""
	}

	thumbColor := theme.BorderColor
	if bar.Focused {
		thumbColor = theme.Accent
	}
	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(thumbColor)

	offset, size := bar.thumb()
	lines := make([]string, bar.Height)
	for index := range lines {
		if index >= offset && index < offset+size {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
