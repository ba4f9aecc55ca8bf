// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"
)

// LineKind tags one line of a [DiffResult].
type LineKind uint8

const (
	// LineContext is present unchanged in both base and overlay.
	LineContext LineKind = iota

	// LineAddition is present only in the overlay.
	LineAddition

	// LineDeletion is present only in the base.
	LineDeletion

	// LineHeader is file, hunk, or annotation text, not content.
	LineHeader
)

func (kind LineKind) String() string {
	switch kind {
	case LineContext:
		return "context"
	case LineAddition:
		return "addition"
	case LineDeletion:
		return "deletion"
	case LineHeader:
		return "header"
	default:
		return fmt.Sprintf("LineKind(%d)", uint8(kind))
	}
}

// MarshalText renders the kind by name in JSON output.
func (kind LineKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// Prefix returns the unified-diff column marker for the kind.
func (kind LineKind) Prefix() string {
	switch kind {
	case LineContext:
		return " "
	case LineAddition:
		return "+"
	case LineDeletion:
		return "-"
	default:
		return ""
	}
}

// DiffLine is one rendered line. Text never includes the line
// terminator. OldNumber and NewNumber are 1-based line numbers in the
// base and overlay files, zero where the line does not exist on that
// side.
type DiffLine struct {
	Kind      LineKind `json:"kind"`
	Text      string   `json:"text"`
	OldNumber int      `json:"old_number,omitempty"`
	NewNumber int      `json:"new_number,omitempty"`
}

// DiffResult is the rendered comparison of one file node.
type DiffResult struct {
	Path   string `json:"path"`
	Status Status `json:"status"`

	// OldName and NewName label the two sides in the file header.
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`

	// Binary is set when either side is not valid UTF-8 or contains a
	// NUL byte. Lines then hold only a terse header.
	Binary bool `json:"binary,omitempty"`

	// TooLarge is set when a side exceeds [DiffOptions.MaxBytes].
	TooLarge bool `json:"too_large,omitempty"`

	Lines []DiffLine `json:"lines"`

	Hunks     int `json:"hunks"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// String renders the result as unified diff text.
func (result *DiffResult) String() string {
	var builder strings.Builder
	for _, line := range result.Lines {
		builder.WriteString(line.Kind.Prefix())
		builder.WriteString(line.Text)
		builder.WriteByte('\n')
	}
	return builder.String()
}

const (
	// DefaultContextLines is the number of unchanged lines shown around
	// each change.
	DefaultContextLines = 3

	// DefaultMaxDiffBytes caps the size of either side of a diff.
	DefaultMaxDiffBytes int64 = 4 << 20

	// binarySniffLength is how much of a file is searched for NUL bytes.
	binarySniffLength = 8 << 10

	// maxAlignmentCells bounds the LCS table. Larger changed regions
	// are rendered as one deletion block followed by one addition
	// block.
	maxAlignmentCells = 4 << 20

	noNewlineMarker = `\ No newline at end of file`
)

// DiffOptions tunes rendering. Use [DefaultDiffOptions] for the usual
// settings.
type DiffOptions struct {
	// ContextLines around each change. Zero shows changes only.
	ContextLines int

	// MaxBytes is the largest file rendered. Zero or negative uses
	// DefaultMaxDiffBytes.
	MaxBytes int64
}

// DefaultDiffOptions returns three lines of context and a 4 MiB cap.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{ContextLines: DefaultContextLines, MaxBytes: DefaultMaxDiffBytes}
}

// RenderPath looks up path in tree and renders it.
func RenderPath(tree *Tree, roots Roots, path string, options DiffOptions) (*DiffResult, error) {
	node, ok := tree.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%q: %w", path, ErrUnknownPath)
	}
	return Render(roots, node, options)
}

// Render produces the diff for a New or Modified file node. Modified
// files get a line diff aligned by longest common subsequence, grouped
// into hunks with ContextLines of context. Within each changed region
// all deletions precede all additions, so a region reads as one block
// rather than interleaved single-line edits. New files are returned as
// all additions without reading the base. Binary content is reported
// with a single header line.
func Render(roots Roots, node Node, options DiffOptions) (*DiffResult, error) {
	if node.Kind != KindFile || (node.Status != StatusNew && node.Status != StatusModified) {
		return nil, fmt.Errorf("%q (%s %s): %w", node.Path, node.Status, node.Kind, ErrNotRenderable)
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = DefaultMaxDiffBytes
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}

	overlayPath, err := roots.OverlayPath(node.Path)
	if err != nil {
		return nil, err
	}
	basePath, err := roots.BasePath(node.Path)
	if err != nil {
		return nil, err
	}

	result := &DiffResult{
		Path:    node.Path,
		Status:  node.Status,
		OldName: "base/" + node.Path,
		NewName: "overlay/" + node.Path,
	}
	if node.Status == StatusNew {
		result.OldName = "/dev/null"
	}

	if node.Symlink {
		return renderSymlink(result, overlayPath, basePath)
	}

	newContent, tooLarge, err := readForDiff(overlayPath, options.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("reading overlay %s: %w", node.Path, err)
	}
	if tooLarge {
		result.TooLarge = true
		result.addHeader("file too large to diff")
		return result, nil
	}

	var oldContent []byte
	if node.Status == StatusModified {
		baseInfo, err := os.Lstat(basePath)
		switch {
		case err != nil && isAbsent(err):
			result.OldName = "/dev/null"
		case err != nil:
			return nil, fmt.Errorf("reading base %s: %w", node.Path, err)
		case !baseInfo.Mode().IsRegular():
			result.addHeader(fmt.Sprintf("base entry is a %s, not a regular file", describeMode(baseInfo.Mode())))
		default:
			content, tooLarge, err := readForDiff(basePath, options.MaxBytes)
			if err != nil {
				return nil, fmt.Errorf("reading base %s: %w", node.Path, err)
			}
			if tooLarge {
				result.TooLarge = true
				result.addHeader("file too large to diff")
				return result, nil
			}
			oldContent = content
		}
	}

	if isBinary(newContent) || isBinary(oldContent) {
		result.Binary = true
		if node.Status == StatusNew {
			result.addHeader("binary file")
		} else {
			result.addHeader("binary file differs")
		}
		return result, nil
	}

	result.addHeader("--- " + result.OldName)
	result.addHeader("+++ " + result.NewName)
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	edits := alignLines(oldLines, newLines)
	result.appendHunks(edits, oldLines, newLines, options.ContextLines)
	if result.Hunks == 0 {
		if node.Status == StatusNew {
			result.addHeader("empty file")
		} else {
			result.addHeader("no textual differences")
		}
	}
	return result, nil
}

func (result *DiffResult) addHeader(text string) {
	result.Lines = append(result.Lines, DiffLine{Kind: LineHeader, Text: text})
}

// renderSymlink describes a link change as a one-line deletion of the
// old target and a one-line addition of the new one.
func renderSymlink(result *DiffResult, overlayPath, basePath string) (*DiffResult, error) {
	newTarget, err := os.Readlink(overlayPath)
	if err != nil {
		return nil, fmt.Errorf("reading overlay link %s: %w", result.Path, err)
	}
	result.addHeader("--- " + result.OldName)
	result.addHeader("+++ " + result.NewName)
	if result.Status == StatusModified {
		if baseInfo, err := os.Lstat(basePath); err == nil {
			description := describeMode(baseInfo.Mode())
			if baseInfo.Mode().Type() == fs.ModeSymlink {
				if oldTarget, err := os.Readlink(basePath); err == nil {
					description = "symlink -> " + oldTarget
				}
			}
			result.Lines = append(result.Lines, DiffLine{Kind: LineDeletion, Text: description, OldNumber: 1})
			result.Deletions++
		}
	}
	result.Lines = append(result.Lines, DiffLine{Kind: LineAddition, Text: "symlink -> " + newTarget, NewNumber: 1})
	result.Additions++
	result.Hunks = 1
	return result, nil
}

func describeMode(mode fs.FileMode) string {
	switch {
	case mode.IsDir():
		return "directory"
	case mode.IsRegular():
		return "regular file"
	case mode.Type() == fs.ModeSymlink:
		return "symlink"
	case mode.Type()&fs.ModeNamedPipe != 0:
		return "fifo"
	case mode.Type()&fs.ModeSocket != 0:
		return "socket"
	case mode.Type()&fs.ModeDevice != 0:
		return "device"
	default:
		return "special file"
	}
}

// readForDiff reads a file unless it is larger than limit.
func readForDiff(path string, limit int64) ([]byte, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	if info.Size() > limit {
		return nil, true, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	return content, false, nil
}

// isBinary reports whether content should not be diffed as text: a NUL
// byte in the leading sniff window, or invalid UTF-8 anywhere.
func isBinary(content []byte) bool {
	sniff := content
	if len(sniff) > binarySniffLength {
		sniff = sniff[:binarySniffLength]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(content)
}

// splitLines splits content after each newline. Every element keeps
// its terminator except possibly the last, so "a" and "a\n" compare
// unequal.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(content), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// edit is one aligned line: context pairs an old and a new index,
// deletions carry an old index, additions a new index.
type edit struct {
	kind     LineKind
	oldIndex int
	newIndex int
}

// alignLines computes the edit script between old and new. Common
// leading and trailing lines are matched directly; the remaining middle
// is aligned with an LCS table. Each maximal run of changes is then
// reordered so its deletions come first.
func alignLines(old, new []string) []edit {
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}

	edits := make([]edit, 0, len(old)+len(new)-prefix-suffix)
	for index := range prefix {
		edits = append(edits, edit{kind: LineContext, oldIndex: index, newIndex: index})
	}

	middleOld := old[prefix : len(old)-suffix]
	middleNew := new[prefix : len(new)-suffix]
	edits = append(edits, alignMiddle(middleOld, middleNew, prefix)...)

	for index := range suffix {
		oldIndex := len(old) - suffix + index
		newIndex := len(new) - suffix + index
		edits = append(edits, edit{kind: LineContext, oldIndex: oldIndex, newIndex: newIndex})
	}

	return groupChanges(edits)
}

// alignMiddle aligns two slices with a suffix LCS table and a forward
// walk that consumes deletions before additions on ties. offset is the
// index of old[0] and new[0] in the full files.
func alignMiddle(old, new []string, offset int) []edit {
	oldLength := len(old)
	newLength := len(new)
	var edits []edit

	if oldLength*newLength > maxAlignmentCells {
		for index := range oldLength {
			edits = append(edits, edit{kind: LineDeletion, oldIndex: offset + index})
		}
		for index := range newLength {
			edits = append(edits, edit{kind: LineAddition, newIndex: offset + index})
		}
		return edits
	}

	// table[i*(newLength+1)+j] is the LCS length of old[i:] and new[j:].
	width := newLength + 1
	table := make([]int32, (oldLength+1)*width)
	for i := oldLength - 1; i >= 0; i-- {
		for j := newLength - 1; j >= 0; j-- {
			if old[i] == new[j] {
				table[i*width+j] = table[(i+1)*width+j+1] + 1
			} else if table[(i+1)*width+j] >= table[i*width+j+1] {
				table[i*width+j] = table[(i+1)*width+j]
			} else {
				table[i*width+j] = table[i*width+j+1]
			}
		}
	}

	i, j := 0, 0
	for i < oldLength || j < newLength {
		switch {
		case i < oldLength && j < newLength && old[i] == new[j]:
			edits = append(edits, edit{kind: LineContext, oldIndex: offset + i, newIndex: offset + j})
			i++
			j++
		case i < oldLength && (j == newLength || table[(i+1)*width+j] >= table[i*width+j+1]):
			edits = append(edits, edit{kind: LineDeletion, oldIndex: offset + i})
			i++
		default:
			edits = append(edits, edit{kind: LineAddition, newIndex: offset + j})
			j++
		}
	}
	return edits
}

// groupChanges stably moves deletions ahead of additions inside every
// run of consecutive non-context edits.
func groupChanges(edits []edit) []edit {
	grouped := make([]edit, 0, len(edits))
	for index := 0; index < len(edits); {
		if edits[index].kind == LineContext {
			grouped = append(grouped, edits[index])
			index++
			continue
		}
		end := index
		for end < len(edits) && edits[end].kind != LineContext {
			end++
		}
		for _, change := range edits[index:end] {
			if change.kind == LineDeletion {
				grouped = append(grouped, change)
			}
		}
		for _, change := range edits[index:end] {
			if change.kind == LineAddition {
				grouped = append(grouped, change)
			}
		}
		index = end
	}
	return grouped
}

// appendHunks groups edits into hunks separated by more than twice the
// context length of unchanged lines and appends them to the result.
func (result *DiffResult) appendHunks(edits []edit, old, new []string, contextLines int) {
	// Line counts consumed before each edit, for hunk headers.
	oldBefore := make([]int, len(edits)+1)
	newBefore := make([]int, len(edits)+1)
	for index, change := range edits {
		oldBefore[index+1] = oldBefore[index]
		newBefore[index+1] = newBefore[index]
		if change.kind != LineAddition {
			oldBefore[index+1]++
		}
		if change.kind != LineDeletion {
			newBefore[index+1]++
		}
	}

	for index := 0; index < len(edits); {
		if edits[index].kind == LineContext {
			index++
			continue
		}
		start := max(0, index-contextLines)
		end := index
		for end < len(edits) {
			if edits[end].kind != LineContext {
				end++
				continue
			}
			run := end
			for run < len(edits) && edits[run].kind == LineContext {
				run++
			}
			if run == len(edits) || run-end > 2*contextLines {
				end = min(len(edits), end+contextLines)
				break
			}
			end = run
		}

		result.appendHunk(edits[start:end], old, new, oldBefore[start], newBefore[start],
			oldBefore[end]-oldBefore[start], newBefore[end]-newBefore[start])
		index = end
	}
}

func (result *DiffResult) appendHunk(edits []edit, old, new []string, oldStart, newStart, oldCount, newCount int) {
	if oldCount > 0 {
		oldStart++
	}
	if newCount > 0 {
		newStart++
	}
	result.addHeader(fmt.Sprintf("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount))
	result.Hunks++

	for _, change := range edits {
		var line DiffLine
		var raw string
		switch change.kind {
		case LineContext:
			raw = old[change.oldIndex]
			line = DiffLine{Kind: LineContext, OldNumber: change.oldIndex + 1, NewNumber: change.newIndex + 1}
		case LineDeletion:
			raw = old[change.oldIndex]
			line = DiffLine{Kind: LineDeletion, OldNumber: change.oldIndex + 1}
			result.Deletions++
		case LineAddition:
			raw = new[change.newIndex]
			line = DiffLine{Kind: LineAddition, NewNumber: change.newIndex + 1}
			result.Additions++
		}
		line.Text = strings.TrimSuffix(raw, "\n")
		result.Lines = append(result.Lines, line)
		if !strings.HasSuffix(raw, "\n") {
			result.addHeader(noNewlineMarker)
		}
	}
}
