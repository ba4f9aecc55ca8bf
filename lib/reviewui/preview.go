// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reviewui

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/auditbox/lib/tui"
	"github.com/bureau-foundation/auditbox/overlay"
)

// DiffPane wraps a bubbles viewport for the scrollable right-hand
// pane: a one-line title above a diff, a syntax-highlighted preview of
// a new file, or a directory summary.
type DiffPane struct {
	viewport viewport.Model
	theme    tui.Theme

	// highlightStyle is the chroma style for new-file previews.
	highlightStyle string
	renderer       *lipgloss.Renderer

	width  int
	height int

	title string
	path  string
}

// NewDiffPane creates an empty pane. The renderer is pinned to
// ANSI256 so colors survive in environments without a TTY, which is
// how the reviewer is always displayed.
func NewDiffPane(theme tui.Theme, highlightStyle string) DiffPane {
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)
	return DiffPane{
		theme:          theme,
		highlightStyle: highlightStyle,
		renderer:       renderer,
	}
}

// Path returns the path currently shown, or "" when the pane is empty.
func (pane DiffPane) Path() string {
	return pane.path
}

// contentWidth is the pane width minus the left padding column and
// the scrollbar column.
func (pane DiffPane) contentWidth() int {
	return max(pane.width-2, 1)
}

// SetSize updates the pane dimensions.
func (pane *DiffPane) SetSize(width, height int) {
	pane.width = width
	pane.height = height
	pane.viewport.Width = pane.contentWidth()
	pane.viewport.Height = max(height-1, 1)
}

func (pane *DiffPane) setContent(path, title string, lines []string) {
	if path != pane.path {
		pane.viewport.GotoTop()
	}
	pane.path = path
	pane.title = title
	pane.viewport.SetContent(strings.Join(lines, "\n"))

	maxOffset := max(pane.viewport.TotalLineCount()-pane.viewport.Height, 0)
	if pane.viewport.YOffset > maxOffset {
		pane.viewport.SetYOffset(maxOffset)
	}
}

// ShowDiff displays a rendered diff. New text files are shown as a
// syntax-highlighted listing when the file name selects a lexer;
// everything else is shown as colored unified diff lines.
func (pane *DiffPane) ShowDiff(result *overlay.DiffResult) {
	title := fmt.Sprintf("%s  %s", result.Path, result.Status)
	switch {
	case result.Binary:
		title += "  binary"
	case result.TooLarge:
		title += "  too large"
	default:
		title += fmt.Sprintf("  +%d -%d", result.Additions, result.Deletions)
	}

	if result.Status == overlay.StatusNew && !result.Binary && !result.TooLarge {
		if lines, ok := pane.highlightNewFile(result); ok {
			pane.setContent(result.Path, title, lines)
			return
		}
	}

	lines := make([]string, 0, len(result.Lines))
	for _, line := range result.Lines {
		style := pane.renderer.NewStyle().Foreground(pane.theme.LineColor(line))
		lines = append(lines, style.Render(line.Kind.Prefix()+expandTabs(line.Text)))
	}
	pane.setContent(result.Path, title, lines)
}

// highlightNewFile renders the addition lines of a new file through
// chroma with a line-number gutter. Returns false when no lexer
// matches the path or highlighting fails.
func (pane *DiffPane) highlightNewFile(result *overlay.DiffResult) ([]string, bool) {
	lexer := lexers.Match(result.Path)
	if lexer == nil {
		return nil, false
	}

	var source strings.Builder
	count := 0
	for _, line := range result.Lines {
		if line.Kind != overlay.LineAddition {
			continue
		}
		source.WriteString(expandTabs(line.Text))
		source.WriteByte('\n')
		count++
	}
	if count == 0 {
		return nil, false
	}

	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, source.String(), lexer.Config().Name, "terminal256", pane.highlightStyle); err != nil {
		return nil, false
	}

	gutter := pane.renderer.NewStyle().Foreground(pane.theme.FaintText)
	width := len(fmt.Sprint(count))
	code := strings.Split(strings.TrimSuffix(highlighted.String(), "\n"), "\n")
	lines := make([]string, 0, len(code))
	for index, text := range code {
		lines = append(lines, gutter.Render(fmt.Sprintf("%*d ", width, index+1))+text)
	}
	return lines, true
}

// ShowDirectory displays a summary of a directory node.
func (pane *DiffPane) ShowDirectory(node overlay.Node) {
	faint := pane.renderer.NewStyle().Foreground(pane.theme.FaintText)
	name := node.Path
	if name == "" {
		name = "."
	}
	lines := []string{
		faint.Render(fmt.Sprintf("%d changed files", node.FileCount())),
		faint.Render("selection: " + node.State().String()),
	}
	pane.setContent(node.Path, name+"/", lines)
}

// ShowMessage displays a plain message, used for render errors and
// entries that have no diff.
func (pane *DiffPane) ShowMessage(path, title, message string) {
	style := pane.renderer.NewStyle().Foreground(pane.theme.FaintText)
	pane.setContent(path, title, []string{style.Render(message)})
}

// Clear empties the pane.
func (pane *DiffPane) Clear() {
	pane.path = ""
	pane.title = ""
	pane.viewport.SetContent("")
	pane.viewport.GotoTop()
}

// View renders the title, the viewport, and a scrollbar along the
// right edge.
func (pane DiffPane) View(focused bool) string {
	titleStyle := pane.renderer.NewStyle().
		Foreground(pane.theme.HeaderForeground).
		Bold(true).
		PaddingLeft(1).
		Width(pane.width)
	title := titleStyle.Render(tui.TruncateMiddle(pane.title, pane.contentWidth()))

	body := pane.renderer.NewStyle().
		PaddingLeft(1).
		Width(pane.width - 1).
		Height(pane.viewport.Height).
		MaxHeight(pane.viewport.Height).
		Render(pane.viewport.View())

	scrollbar := tui.Scrollbar{
		Height:  pane.viewport.Height,
		Total:   pane.viewport.TotalLineCount(),
		Visible: pane.viewport.Height,
		Offset:  pane.viewport.YOffset,
		Focused: focused,
	}.Render(pane.theme)

	return title + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, body, scrollbar)
}

// expandTabs replaces tabs with spaces at eight-column stops so the
// viewport's width accounting matches what the terminal draws.
func expandTabs(text string) string {
	if !strings.Contains(text, "\t") {
		return text
	}
	var builder strings.Builder
	column := 0
	for _, r := range text {
		if r == '\t' {
			spaces := 8 - column%8
			builder.WriteString(strings.Repeat(" ", spaces))
			column += spaces
			continue
		}
		builder.WriteRune(r)
		column++
	}
	return builder.String()
}
