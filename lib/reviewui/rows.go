// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reviewui

import (
	"strings"
	"unicode/utf8"

	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/auditbox/lib/tui"
	"github.com/bureau-foundation/auditbox/overlay"
)

// row is one line of the tree pane.
type row struct {
	node overlay.Node

	// positions are rune indices into node.Name of characters matched
	// by the filter, for highlighting.
	positions []int
}

// buildRows flattens tree in pre-order. With a non-empty pattern only
// files whose path fuzzy-matches it are kept, along with the
// directories leading to them.
func buildRows(tree *overlay.Tree, pattern []rune, slab *util.Slab) []row {
	var rows []row
	if tree == nil {
		return rows
	}
	if len(pattern) == 0 {
		tree.Walk(func(node overlay.Node) bool {
			rows = append(rows, row{node: node})
			return true
		})
		return rows
	}

	matches := make(map[string][]int)
	keep := make(map[string]bool)
	tree.Walk(func(node overlay.Node) bool {
		if node.IsDir() {
			return true
		}
		result := tui.FuzzyMatch(node.Path, pattern, slab)
		if !result.Matched() {
			return true
		}
		matches[node.Path] = result.Positions
		keep[node.Path] = true
		for directory := parentOf(node.Path); directory != ""; directory = parentOf(directory) {
			keep[directory] = true
		}
		return true
	})

	tree.Walk(func(node overlay.Node) bool {
		if !keep[node.Path] {
			return false
		}
		rows = append(rows, row{node: node, positions: namePositions(node, matches[node.Path])})
		return true
	})
	return rows
}

// namePositions converts match positions in a node's path to positions
// in its name, dropping matches in the directory part.
func namePositions(node overlay.Node, positions []int) []int {
	offset := utf8.RuneCountInString(node.Path) - utf8.RuneCountInString(node.Name)
	var result []int
	for _, position := range positions {
		if position >= offset {
			result = append(result, position-offset)
		}
	}
	return result
}

func parentOf(path string) string {
	index := strings.LastIndexByte(path, '/')
	if index < 0 {
		return ""
	}
	return path[:index]
}

// indexOfPath returns the row holding path, or -1.
func indexOfPath(rows []row, path string) int {
	for index, candidate := range rows {
		if candidate.node.Path == path {
			return index
		}
	}
	return -1
}

// nearestSurvivor picks the row for the cursor when the path it was
// on disappeared: the same index, clamped to the list, so the next
// entry slides under the cursor.
func nearestSurvivor(rows []row, previousIndex int) int {
	if len(rows) == 0 {
		return 0
	}
	return min(max(previousIndex, 0), len(rows)-1)
}
