// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reviewui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/auditbox/journal"
	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/tui"
	"github.com/bureau-foundation/auditbox/overlay"
)

// FocusRegion identifies which part of the screen receives keys.
type FocusRegion int

const (
	// FocusTree means navigation keys move the tree cursor.
	FocusTree FocusRegion = iota
	// FocusDiff means navigation keys scroll the diff pane.
	FocusDiff
	// FocusFilter means keystrokes edit the path filter.
	FocusFilter
	// FocusDialog means a dialog is open and captures all input.
	FocusDialog
)

// Dialog option values.
const (
	actionApply   = "apply"
	actionDiscard = "discard"
)

const (
	// dialogPathLimit is how many paths a confirmation lists before
	// summarizing the rest.
	dialogPathLimit = 8

	minTreeWidth = 24
)

// Options configures a review [Model].
type Options struct {
	Roots overlay.Roots

	Scan overlay.ScanOptions
	Diff overlay.DiffOptions

	// Workers and Writer are passed to [overlay.Apply].
	Workers int
	Writer  overlay.FileWriter

	// Journal, when set, receives a record for every apply and discard
	// outcome.
	Journal *journal.Journal

	// Changes, when set, triggers a rescan on every receive. Pass
	// [overlay.Watcher.Changes] for live refresh.
	Changes <-chan struct{}

	// HighlightStyle is the chroma style for new-file previews. Empty
	// uses "monokai".
	HighlightStyle string

	// Theme defaults to [tui.DefaultTheme].
	Theme *tui.Theme

	// Clock drives change highlighting. Nil uses the real clock.
	Clock clock.Clock

	// Logger is handed to the engine. Nil discards.
	Logger *slog.Logger
}

// overlayChangedMsg reports filesystem activity in the overlay.
type overlayChangedMsg struct{}

// scanResultMsg carries a finished scan. Results whose sequence is
// older than the model's latest request are dropped.
type scanResultMsg struct {
	sequence int
	tree     *overlay.Tree
	report   *overlay.ScanReport
	err      error

	// watched is set for rescans triggered by filesystem activity;
	// their changed rows are highlighted.
	watched bool
}

type applyResultMsg struct {
	outcomes   []overlay.ApplyOutcome
	journalErr error
}

type discardResultMsg struct {
	outcomes   []overlay.DiscardOutcome
	journalErr error
}

// heatTickMsg drives the change-highlight decay.
type heatTickMsg struct{}

// statusFadeMsg clears the status message it was scheduled for.
type statusFadeMsg struct {
	sequence int
}

// Model is the bubbletea model for the overlay reviewer: a tree of
// changed files on the left, the selected file's diff on the right.
type Model struct {
	ctx     context.Context
	options Options
	theme   tui.Theme
	keys    KeyMap
	clock   clock.Clock
	logger  *slog.Logger

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	tree   *overlay.Tree
	report *overlay.ScanReport
	rows   []row

	cursor       int
	scrollOffset int
	focus        FocusRegion
	priorFocus   FocusRegion

	filter string
	slab   *util.Slab

	diffPane DiffPane

	dialog       *tui.Dialog
	dialogPaths  []string
	scanSequence int
	scanning     bool

	// busy names the operation in flight ("applying", "discarding").
	// New operations are refused while it is set.
	busy string

	status         string
	statusLevel    slog.Level
	statusSequence int

	heat        *tui.HeatTracker
	tickRunning bool

	// schedule delivers message after delay. Tests replace it to keep
	// timers out of the command stream.
	schedule func(delay time.Duration, message tea.Msg) tea.Cmd
}

// NewModel creates a reviewer for options.Roots. The first scan starts
// from Init.
func NewModel(ctx context.Context, options Options) Model {
	theme := tui.DefaultTheme
	if options.Theme != nil {
		theme = *options.Theme
	}
	if options.HighlightStyle == "" {
		options.HighlightStyle = "monokai"
	}
	source := options.Clock
	if source == nil {
		source = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	options.Scan.Logger = logger

	return Model{
		ctx:          ctx,
		options:      options,
		theme:        theme,
		keys:         DefaultKeyMap,
		clock:        source,
		logger:       logger,
		slab:         tui.NewSlab(),
		diffPane:     NewDiffPane(theme, options.HighlightStyle),
		heat:         tui.NewHeatTracker(),
		scanSequence: 1,
		scanning:     true,
		schedule: func(delay time.Duration, message tea.Msg) tea.Cmd {
			return tea.Tick(delay, func(time.Time) tea.Msg { return message })
		},
	}
}

// Init implements tea.Model: start the first scan and, when
// configured, listen for overlay changes.
func (model Model) Init() tea.Cmd {
	return tea.Batch(model.scanCmd(model.scanSequence, false), listenForChanges(model.options.Changes))
}

// listenForChanges waits for one value on changes. A closed channel
// ends listening.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return overlayChangedMsg{}
	}
}

func (model Model) scanCmd(sequence int, watched bool) tea.Cmd {
	ctx, roots, options := model.ctx, model.options.Roots, model.options.Scan
	return func() tea.Msg {
		tree, report, err := overlay.Scan(ctx, roots, options)
		return scanResultMsg{sequence: sequence, tree: tree, report: report, err: err, watched: watched}
	}
}

func (model Model) applyCmd(paths []string) tea.Cmd {
	ctx, roots, records := model.ctx, model.options.Roots, model.options.Journal
	options := overlay.ApplyOptions{
		Workers: model.options.Workers,
		Writer:  model.options.Writer,
		Logger:  model.logger,
	}
	return func() tea.Msg {
		outcomes := overlay.Apply(ctx, roots, paths, options)
		var journalErr error
		if records != nil {
			journalErr = records.RecordApply(outcomes)
		}
		return applyResultMsg{outcomes: outcomes, journalErr: journalErr}
	}
}

func (model Model) discardCmd(paths []string) tea.Cmd {
	ctx, roots, records := model.ctx, model.options.Roots, model.options.Journal
	return func() tea.Msg {
		outcomes := overlay.Discard(ctx, roots, paths)
		var journalErr error
		if records != nil {
			journalErr = records.RecordDiscard(outcomes)
		}
		return discardResultMsg{outcomes: outcomes, journalErr: journalErr}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updatePaneSizes()
		model.ensureCursorVisible()
		return model, nil

	case tea.KeyMsg:
		switch model.focus {
		case FocusDialog:
			return model.handleDialogKeys(message)
		case FocusFilter:
			return model.handleFilterKeys(message)
		}
		return model.handleKeys(message)

	case scanResultMsg:
		return model.handleScanResult(message)

	case applyResultMsg:
		return model.handleApplyResult(message)

	case discardResultMsg:
		return model.handleDiscardResult(message)

	case overlayChangedMsg:
		var rescan tea.Cmd
		model, rescan = model.rescan(true)
		return model, tea.Batch(rescan, listenForChanges(model.options.Changes))

	case logRecordMsg:
		return model, model.setStatus(message.Level, message.Summary)

	case statusFadeMsg:
		if message.sequence == model.statusSequence {
			model.status = ""
		}
		return model, nil

	case heatTickMsg:
		if model.heat.HasHot(model.clock.Now()) {
			return model, model.schedule(tui.HeatTickInterval, heatTickMsg{})
		}
		model.tickRunning = false
		return model, nil
	}
	return model, nil
}

// handleKeys processes keys when no dialog or filter has focus.
func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.FocusToggle):
		if model.focus == FocusTree {
			model.focus = FocusDiff
		} else {
			model.focus = FocusTree
		}
		return model, nil

	case key.Matches(message, model.keys.Help):
		model.openHelpDialog()
		return model, nil

	case key.Matches(message, model.keys.Rescan):
		return model.rescan(false)

	case key.Matches(message, model.keys.FilterActivate):
		model.priorFocus = model.focus
		model.focus = FocusFilter
		return model, nil

	case key.Matches(message, model.keys.FilterClear):
		if model.filter != "" {
			model.filter = ""
			model.rebuildRows(model.cursorPath())
			model.syncDiffPane(false)
		}
		return model, nil

	case key.Matches(message, model.keys.SelectAll):
		if model.tree == nil || model.tree.Empty() {
			return model, nil
		}
		if model.tree.Root().State() == overlay.SelectionFull {
			model.tree.ClearSelection()
		} else {
			model.tree.SelectAll()
		}
		model.refreshRows()
		return model, nil

	case key.Matches(message, model.keys.Apply):
		return model, model.openApplyDialog()

	case key.Matches(message, model.keys.Discard):
		return model, model.openDiscardDialog()
	}

	if model.focus == FocusDiff {
		model.handleDiffKeys(message)
		return model, nil
	}
	model.handleTreeKeys(message)
	return model, nil
}

// handleTreeKeys processes navigation and selection in the tree pane.
func (model *Model) handleTreeKeys(message tea.KeyMsg) {
	previous := model.cursor
	switch {
	case key.Matches(message, model.keys.Up):
		model.cursor--
	case key.Matches(message, model.keys.Down):
		model.cursor++
	case key.Matches(message, model.keys.PageUp):
		model.cursor -= max(model.visibleHeight(), 1)
	case key.Matches(message, model.keys.PageDown):
		model.cursor += max(model.visibleHeight(), 1)
	case key.Matches(message, model.keys.Home):
		model.cursor = 0
	case key.Matches(message, model.keys.End):
		model.cursor = len(model.rows) - 1
	case key.Matches(message, model.keys.Toggle):
		model.toggleCursor()
		return
	default:
		return
	}
	model.cursor = min(max(model.cursor, 0), max(len(model.rows)-1, 0))
	model.ensureCursorVisible()
	if model.cursor != previous {
		model.syncDiffPane(false)
	}
}

// handleDiffKeys scrolls the diff pane.
func (model *Model) handleDiffKeys(message tea.KeyMsg) {
	switch {
	case key.Matches(message, model.keys.Up):
		model.diffPane.viewport.LineUp(1)
	case key.Matches(message, model.keys.Down):
		model.diffPane.viewport.LineDown(1)
	case key.Matches(message, model.keys.PageUp):
		model.diffPane.viewport.HalfViewUp()
	case key.Matches(message, model.keys.PageDown):
		model.diffPane.viewport.HalfViewDown()
	case key.Matches(message, model.keys.Home):
		model.diffPane.viewport.GotoTop()
	case key.Matches(message, model.keys.End):
		model.diffPane.viewport.GotoBottom()
	}
}

// handleFilterKeys edits the filter. Esc clears the text, or leaves
// filter mode when it is already empty. Enter returns to the tree.
func (model Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.FilterClear):
		if model.filter != "" {
			model.filter = ""
			model.rebuildRows(model.cursorPath())
			model.syncDiffPane(false)
		} else {
			model.focus = model.priorFocus
		}
		return model, nil

	case message.Type == tea.KeyEnter:
		model.focus = FocusTree
		return model, nil

	case message.Type == tea.KeyBackspace:
		if model.filter == "" {
			return model, nil
		}
		runes := []rune(model.filter)
		model.filter = string(runes[:len(runes)-1])

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		model.filter += string(message.Runes)

	default:
		return model, nil
	}

	// Typing restarts the list from the top so the best matches are
	// in view.
	model.rows = buildRows(model.tree, []rune(model.filter), model.slab)
	model.cursor = 0
	model.scrollOffset = 0
	model.syncDiffPane(false)
	return model, nil
}

// handleDialogKeys routes input to the open dialog.
func (model Model) handleDialogKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit
	case key.Matches(message, model.keys.DialogLeft):
		model.dialog.MoveLeft()
	case key.Matches(message, model.keys.DialogRight):
		model.dialog.MoveRight()
	case key.Matches(message, model.keys.DialogCancel):
		model.closeDialog()
	case key.Matches(message, model.keys.DialogConfirm):
		action := model.dialog.Selected().Value
		paths := model.dialogPaths
		model.closeDialog()
		switch action {
		case actionApply:
			model.busy = "applying"
			return model, model.applyCmd(paths)
		case actionDiscard:
			model.busy = "discarding"
			return model, model.discardCmd(paths)
		}
	}
	return model, nil
}

func (model *Model) openDialog(dialog *tui.Dialog, paths []string) {
	dialog.MaxWidth = max(model.width-4, 20)
	model.dialog = dialog
	model.dialogPaths = paths
	if model.focus != FocusDialog {
		model.priorFocus = model.focus
	}
	model.focus = FocusDialog
}

func (model *Model) closeDialog() {
	model.dialog = nil
	model.dialogPaths = nil
	model.focus = model.priorFocus
}

func (model *Model) openHelpDialog() {
	var body []string
	for _, binding := range model.keys.helpBindings() {
		help := binding.Help()
		body = append(body, fmt.Sprintf("%-8s %s", help.Key, help.Desc))
	}
	model.openDialog(&tui.Dialog{
		Title:   "Keys",
		Body:    body,
		Options: []tui.DialogOption{{Label: "Close"}},
	}, nil)
}

// openApplyDialog asks to apply every selected New or Modified file.
// Unsupported entries are left out; Apply would refuse them anyway.
func (model *Model) openApplyDialog() tea.Cmd {
	if model.busy != "" {
		return model.setStatus(slog.LevelWarn, "still "+model.busy)
	}
	if model.tree == nil {
		return nil
	}

	var paths []string
	skipped := 0
	for _, path := range model.tree.SelectedLeaves() {
		node, ok := model.tree.Lookup(path)
		if !ok {
			continue
		}
		if node.Status == overlay.StatusUnsupported {
			skipped++
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return model.setStatus(slog.LevelWarn, "nothing selected to apply (space selects)")
	}

	body := summarizePaths(paths)
	if skipped > 0 {
		body = append(body, "", fmt.Sprintf("%d unsupported %s skipped", skipped, plural(skipped, "entry", "entries")))
	}
	title := fmt.Sprintf("Apply %d %s to %s?", len(paths), plural(len(paths), "file", "files"), model.options.Roots.Base)
	model.openDialog(tui.NewConfirmDialog(title, body, "Apply", actionApply), paths)
	return nil
}

// openDiscardDialog asks to discard the selected files, or the entry
// under the cursor when nothing is selected.
func (model *Model) openDiscardDialog() tea.Cmd {
	if model.busy != "" {
		return model.setStatus(slog.LevelWarn, "still "+model.busy)
	}
	if model.tree == nil {
		return nil
	}

	paths := model.tree.SelectedLeaves()
	if len(paths) == 0 {
		if len(model.rows) == 0 {
			return model.setStatus(slog.LevelWarn, "nothing to discard")
		}
		paths = []string{model.rows[model.cursor].node.Path}
	}

	body := append(summarizePaths(paths), "", "This cannot be undone.")
	title := fmt.Sprintf("Discard %d %s from the overlay?", len(paths), plural(len(paths), "entry", "entries"))
	model.openDialog(tui.NewConfirmDialog(title, body, "Discard", actionDiscard), paths)
	return nil
}

// summarizePaths lists up to dialogPathLimit paths and counts the rest.
func summarizePaths(paths []string) []string {
	if len(paths) <= dialogPathLimit {
		return append([]string(nil), paths...)
	}
	lines := append([]string(nil), paths[:dialogPathLimit]...)
	return append(lines, fmt.Sprintf("… and %d more", len(paths)-dialogPathLimit))
}

func plural(count int, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}

// rescan starts a scan. Any scan already in flight is superseded.
func (model Model) rescan(watched bool) (Model, tea.Cmd) {
	model.scanSequence++
	model.scanning = true
	return model, model.scanCmd(model.scanSequence, watched)
}

func (model Model) handleScanResult(message scanResultMsg) (tea.Model, tea.Cmd) {
	if message.sequence != model.scanSequence {
		return model, nil
	}
	model.scanning = false
	if message.err != nil {
		return model, model.setStatus(slog.LevelError, "scan failed: "+message.err.Error())
	}

	cursorPath := model.cursorPath()
	previous := model.tree
	if previous != nil {
		message.tree.SelectPaths(previous.SelectedLeaves())
	}

	var commands []tea.Cmd
	if message.watched && previous != nil && model.igniteChanges(previous, message.tree) {
		commands = append(commands, model.startHeatTick())
	}

	model.tree = message.tree
	model.report = message.report
	model.rebuildRows(cursorPath)
	model.syncDiffPane(true)

	if count := len(message.report.Warnings); count > 0 {
		commands = append(commands, model.setStatus(slog.LevelWarn,
			fmt.Sprintf("%d %s could not be read: %s", count, plural(count, "entry", "entries"), message.report.Warnings[0].Error())))
	}
	return model, tea.Batch(commands...)
}

// igniteChanges highlights files that are new since the previous scan
// or whose status or size changed. Reports whether anything ignited.
func (model *Model) igniteChanges(previous, current *overlay.Tree) bool {
	now := model.clock.Now()
	ignited := false
	current.Walk(func(node overlay.Node) bool {
		if node.IsDir() {
			return true
		}
		old, ok := previous.Lookup(node.Path)
		if !ok || old.Status != node.Status || old.Size != node.Size {
			model.heat.Ignite(node.Path, tui.HeatPut, now)
			ignited = true
		}
		return true
	})
	return ignited
}

func (model *Model) startHeatTick() tea.Cmd {
	if model.tickRunning {
		return nil
	}
	model.tickRunning = true
	return model.schedule(tui.HeatTickInterval, heatTickMsg{})
}

func (model Model) handleApplyResult(message applyResultMsg) (tea.Model, tea.Cmd) {
	model.busy = ""
	now := model.clock.Now()

	applied := 0
	var firstFailure *overlay.ApplyOutcome
	for index, outcome := range message.outcomes {
		if outcome.Result == overlay.Applied {
			applied++
			continue
		}
		model.heat.Ignite(outcome.Path, tui.HeatRemove, now)
		if firstFailure == nil {
			firstFailure = &message.outcomes[index]
		}
	}

	level := slog.LevelInfo
	summary := fmt.Sprintf("applied %d of %d %s", applied, len(message.outcomes), plural(len(message.outcomes), "file", "files"))
	if firstFailure != nil {
		level = slog.LevelError
		summary += fmt.Sprintf("; %d failed (%s: %v)", len(message.outcomes)-applied, firstFailure.Path, firstFailure.Err)
	}
	if message.journalErr != nil {
		level = max(level, slog.LevelWarn)
		summary += "; journal: " + message.journalErr.Error()
	}

	model, rescan := model.rescan(false)
	commands := []tea.Cmd{rescan, model.setStatus(level, summary)}
	if firstFailure != nil {
		commands = append(commands, model.startHeatTick())
	}
	return model, tea.Batch(commands...)
}

func (model Model) handleDiscardResult(message discardResultMsg) (tea.Model, tea.Cmd) {
	model.busy = ""

	deleted := 0
	var firstFailure *overlay.DiscardOutcome
	for index, outcome := range message.outcomes {
		if outcome.Result == overlay.Deleted {
			deleted++
			// Discarded paths leave the selection; a file recreated at
			// the same path later should not come back selected.
			if model.tree != nil {
				model.tree.DeselectAllUnder(outcome.Path)
			}
			continue
		}
		if firstFailure == nil {
			firstFailure = &message.outcomes[index]
		}
	}

	level := slog.LevelInfo
	summary := fmt.Sprintf("discarded %d of %d %s", deleted, len(message.outcomes), plural(len(message.outcomes), "entry", "entries"))
	if firstFailure != nil {
		level = slog.LevelError
		summary += fmt.Sprintf("; %d failed (%s: %v)", len(message.outcomes)-deleted, firstFailure.Path, firstFailure.Err)
	}
	if message.journalErr != nil {
		level = max(level, slog.LevelWarn)
		summary += "; journal: " + message.journalErr.Error()
	}

	model, rescan := model.rescan(false)
	return model, tea.Batch(rescan, model.setStatus(level, summary))
}

// setStatus shows text in the status bar and schedules its removal.
func (model *Model) setStatus(level slog.Level, text string) tea.Cmd {
	model.statusSequence++
	model.status = text
	model.statusLevel = level
	return model.schedule(logRecordFadeDelay, statusFadeMsg{sequence: model.statusSequence})
}

// toggleCursor flips the selection of the entry under the cursor.
func (model *Model) toggleCursor() {
	if len(model.rows) == 0 || model.tree == nil {
		return
	}
	path := model.rows[model.cursor].node.Path
	if err := model.tree.Toggle(path); err != nil {
		model.logger.Debug("toggle failed", "path", path, "error", err)
		return
	}
	model.refreshRows()
}

// refreshRows re-reads node copies after a selection change, keeping
// the cursor and filter.
func (model *Model) refreshRows() {
	model.rebuildRows(model.cursorPath())
	if len(model.rows) > 0 && model.rows[model.cursor].node.IsDir() {
		model.syncDiffPane(true)
	}
}

func (model Model) cursorPath() string {
	if model.cursor < 0 || model.cursor >= len(model.rows) {
		return ""
	}
	return model.rows[model.cursor].node.Path
}

// rebuildRows recomputes the visible rows and puts the cursor back on
// path, or on the row that took its place.
func (model *Model) rebuildRows(path string) {
	model.rows = buildRows(model.tree, []rune(model.filter), model.slab)
	if index := indexOfPath(model.rows, path); index >= 0 && path != "" {
		model.cursor = index
	} else {
		model.cursor = nearestSurvivor(model.rows, model.cursor)
	}
	model.ensureCursorVisible()
}

// syncDiffPane shows the entry under the cursor. Unless force is set,
// an entry already on display is not re-rendered.
func (model *Model) syncDiffPane(force bool) {
	if len(model.rows) == 0 {
		model.diffPane.Clear()
		return
	}
	node := model.rows[model.cursor].node
	if !force && model.diffPane.Path() == node.Path {
		return
	}

	switch {
	case node.IsDir():
		model.diffPane.ShowDirectory(node)
	case node.Status == overlay.StatusUnsupported:
		model.diffPane.ShowMessage(node.Path, node.Path+"  unsupported",
			fmt.Sprintf("special file (%s): can be discarded, not applied", node.Mode.Type()))
	default:
		result, err := overlay.Render(model.options.Roots, node, model.options.Diff)
		if err != nil {
			model.diffPane.ShowMessage(node.Path, node.Path, err.Error())
			return
		}
		model.diffPane.ShowDiff(result)
	}
}

// Layout.

func (model Model) treeWidth() int {
	width := max(model.width*2/5, minTreeWidth)
	return min(width, max(model.width-minTreeWidth, 1))
}

// visibleHeight is the number of tree rows between the header line
// and the separator and status lines.
func (model Model) visibleHeight() int {
	return model.height - 3
}

func (model *Model) updatePaneSizes() {
	diffWidth := max(model.width-model.treeWidth()-1, 10)
	model.diffPane.SetSize(diffWidth, max(model.visibleHeight(), 1))
}

func (model *Model) ensureCursorVisible() {
	visible := model.visibleHeight()
	if visible <= 0 {
		return
	}
	maxOffset := max(len(model.rows)-visible, 0)
	model.scrollOffset = min(model.scrollOffset, maxOffset)
	if model.cursor < model.scrollOffset {
		model.scrollOffset = model.cursor
	}
	if model.cursor >= model.scrollOffset+visible {
		model.scrollOffset = model.cursor - visible + 1
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}

	sections := []string{model.renderHeader()}

	content := lipgloss.JoinHorizontal(lipgloss.Top,
		model.renderTreePane(),
		model.renderDivider(),
		model.diffPane.View(model.focus == FocusDiff),
	)
	sections = append(sections, content)

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))
	sections = append(sections, separator, model.renderStatus())

	output := strings.Join(sections, "\n")
	if model.dialog != nil {
		output = tui.CenterOverlay(output, model.dialog.Render(model.theme), model.width, model.height)
	}
	return output
}

// renderHeader shows the roots and totals, or the filter input while
// a filter is being typed or applied.
func (model Model) renderHeader() string {
	if model.focus == FocusFilter || model.filter != "" {
		style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
		text := " / " + model.filter
		if model.focus == FocusFilter {
			text += lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render("▎")
		} else {
			style = style.Foreground(model.theme.FaintText)
			text = " filter: " + model.filter
		}
		return ansi.Truncate(style.Render(text), model.width, "…")
	}

	title := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render(" audit-box ")
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	roots := faint.Render(model.options.Roots.Overlay + " → " + model.options.Roots.Base)

	var counts string
	if model.tree != nil {
		selected := len(model.tree.SelectedLeaves())
		counts = fmt.Sprintf("  %d changed, %d selected", model.tree.Len(), selected)
		if model.report != nil && len(model.report.Whiteouts) > 0 {
			counts += fmt.Sprintf(", %d deleted (not applied)", len(model.report.Whiteouts))
		}
	}
	return ansi.Truncate(title+roots+faint.Render(counts), model.width, "…")
}

func (model Model) renderTreePane() string {
	width := model.treeWidth()
	visible := max(model.visibleHeight(), 0)
	paneStyle := lipgloss.NewStyle().Width(width).Height(visible).MaxHeight(visible)

	if model.tree != nil && len(model.rows) == 0 {
		message := "No changes in the overlay."
		if model.filter != "" {
			message = "No paths match the filter."
		}
		return paneStyle.Render(lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(" " + message))
	}

	now := model.clock.Now()
	end := min(model.scrollOffset+visible, len(model.rows))
	lines := make([]string, 0, visible)
	for index := model.scrollOffset; index < end; index++ {
		lines = append(lines, model.renderRow(model.rows[index], index == model.cursor, width, now))
	}
	return paneStyle.Render(strings.Join(lines, "\n"))
}

// renderRow draws one tree row: indent, checkbox, status badge, name.
// The cursor row and hot rows are drawn as plain text on a solid
// background so inner color resets do not break the highlight.
func (model Model) renderRow(row row, isCursor bool, width int, now time.Time) string {
	node := row.node
	indent := strings.Repeat("  ", max(node.Depth-1, 0))
	name := node.Name
	suffix := ""
	switch {
	case node.IsDir():
		suffix = "/"
	case node.Symlink:
		suffix = "@"
	}
	badge := node.Status.Marker()
	checkbox := node.State().Checkbox()

	background := lipgloss.Color("")
	if isCursor {
		background = model.theme.SelectedBackground
	} else {
		background = model.heat.Tint(model.theme, node.Path, now)
	}

	if background != "" {
		style := lipgloss.NewStyle().Background(background).Foreground(model.theme.SelectedForeground).Width(width)
		if isCursor && model.focus == FocusTree {
			style = style.Bold(true)
		}
		plain := " " + indent + checkbox + " " + badge + " " + name + suffix
		return style.Render(ansi.Truncate(plain, width, "…"))
	}

	checkboxStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if node.State() != overlay.SelectionNone {
		checkboxStyle = checkboxStyle.Foreground(model.theme.Accent)
	}
	badgeStyle := lipgloss.NewStyle().Foreground(model.theme.StatusColor(node.Status))
	nameStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	if node.IsDir() {
		nameStyle = nameStyle.Bold(true)
	}
	matchStyle := nameStyle.Background(model.theme.SearchHighlightBackground)

	line := " " + indent + checkboxStyle.Render(checkbox) + " " + badgeStyle.Render(badge) + " " +
		tui.HighlightMatches(name, row.positions, nameStyle.Render, matchStyle.Render) + nameStyle.Render(suffix)
	return ansi.Truncate(line, width, "…")
}

func (model Model) renderDivider() string {
	visible := max(model.visibleHeight(), 0)
	lines := make([]string, visible)
	for index := range lines {
		lines[index] = "│"
	}
	return lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Width(1).
		Height(visible).
		Render(strings.Join(lines, "\n"))
}

// renderStatus shows the latest status message, or the key hints with
// the cursor position.
func (model Model) renderStatus() string {
	if model.status != "" {
		style := lipgloss.NewStyle().Foreground(model.theme.NormalText)
		switch {
		case model.statusLevel >= slog.LevelError:
			style = style.Foreground(model.theme.ErrorForeground).Bold(true)
		case model.statusLevel >= slog.LevelWarn:
			style = style.Foreground(model.theme.WarningForeground)
		}
		return ansi.Truncate(style.Render(" "+model.status), model.width, "…")
	}

	focus := "TREE"
	switch model.focus {
	case FocusDiff:
		focus = "DIFF"
	case FocusFilter:
		focus = "FILTER"
	case FocusDialog:
		focus = "DIALOG"
	}
	help := fmt.Sprintf(" [%s] q quit  space toggle  A all  a apply  d discard  r rescan  / filter  ? help", focus)
	if len(model.rows) > 0 {
		help += fmt.Sprintf("  %d/%d", model.cursor+1, len(model.rows))
	}
	switch {
	case model.busy != "":
		help += "  " + model.busy + "…"
	case model.scanning:
		help += "  scanning…"
	}
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	return ansi.Truncate(style.Render(help), model.width, "…")
}
