// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DialogOption is one button along the bottom of a [Dialog].
type DialogOption struct {
	Label string // Display text on the button.
	Value string // What the model acts on when the button is chosen.
}

// Dialog is a modal box spliced over the main view: a title, body
// lines, and a row of buttons. It captures all keyboard input while
// shown (left/right to move between buttons, enter to choose, escape
// to dismiss). The model owns the instance and routes input to it.
type Dialog struct {
	Title   string
	Body    []string
	Options []DialogOption
	Cursor  int

	// MaxWidth caps the rendered width in columns. Zero means no cap.
	// Body lines that do not fit are shortened in the middle.
	MaxWidth int
}

// NewConfirmDialog builds a two-button dialog whose first button
// confirms. The cursor starts on the cancel button so a stray enter
// does nothing destructive.
func NewConfirmDialog(title string, body []string, confirmLabel, confirmValue string) *Dialog {
	return &Dialog{
		Title: title,
		Body:  body,
		Options: []DialogOption{
			{Label: confirmLabel, Value: confirmValue},
			{Label: "Cancel", Value: ""},
		},
		Cursor: 1,
	}
}

// MoveLeft moves the cursor to the previous button, wrapping.
func (dialog *Dialog) MoveLeft() {
	if len(dialog.Options) == 0 {
		return
	}
	dialog.Cursor--
	if dialog.Cursor < 0 {
		dialog.Cursor = len(dialog.Options) - 1
	}
}

// MoveRight moves the cursor to the next button, wrapping.
func (dialog *Dialog) MoveRight() {
	if len(dialog.Options) == 0 {
		return
	}
	dialog.Cursor++
	if dialog.Cursor >= len(dialog.Options) {
		dialog.Cursor = 0
	}
}

// Selected returns the highlighted button. A dialog without buttons
// returns the zero option.
func (dialog *Dialog) Selected() DialogOption {
	if dialog.Cursor < 0 || dialog.Cursor >= len(dialog.Options) {
		return DialogOption{}
	}
	return dialog.Options[dialog.Cursor]
}

func (dialog *Dialog) buttonsWidth() int {
	width := 0
	for index, option := range dialog.Options {
		if index > 0 {
			width += 2
		}
		width += ansi.StringWidth(option.Label) + 2
	}
	return width
}

// Width returns the visible width of the rendered dialog: the widest
// of title, body, and button row, plus one column of padding on each
// side.
func (dialog *Dialog) Width() int {
	inner := max(ansi.StringWidth(dialog.Title), dialog.buttonsWidth())
	for _, line := range dialog.Body {
		inner = max(inner, ansi.StringWidth(line))
	}
	width := inner + 2
	if dialog.MaxWidth > 0 && width > dialog.MaxWidth {
		width = dialog.MaxWidth
	}
	return width
}

// Render produces the dialog lines for overlay splicing. Every line
// has the same visible width and a solid background.
func (dialog *Dialog) Render(theme Theme) []string {
	innerWidth := dialog.Width() - 2

	background := lipgloss.NewStyle().
		Background(theme.DialogBackground).
		Foreground(theme.DialogForeground)
	title := background.Bold(true).Foreground(theme.HeaderForeground)
	selected := lipgloss.NewStyle().
		Background(theme.SelectedBackground).
		Foreground(theme.SelectedForeground).
		Bold(true)

	blank := PadOverlayLine("", innerWidth, background)
	lines := []string{
		blank,
		PadOverlayLine(title.Render(TruncateMiddle(dialog.Title, innerWidth)), innerWidth, background),
		blank,
	}
	for _, line := range dialog.Body {
		lines = append(lines, PadOverlayLine(background.Render(TruncateMiddle(line, innerWidth)), innerWidth, background))
	}

	if len(dialog.Options) > 0 {
		var buttons strings.Builder
		for index, option := range dialog.Options {
			if index > 0 {
				buttons.WriteString(background.Render("  "))
			}
			label := " " + option.Label + " "
			if index == dialog.Cursor {
				buttons.WriteString(selected.Render(label))
			} else {
				buttons.WriteString(background.Render(label))
			}
		}
		lines = append(lines, blank, PadOverlayLine(buttons.String(), innerWidth, background))
	}
	return append(lines, blank)
}
