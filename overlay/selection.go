// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import "sort"

// Toggle flips the selection at path. On a file it flips that file. On
// a directory that is not fully selected it selects every file
// descendant; on a fully selected directory it deselects them all.
func (tree *Tree) Toggle(path string) error {
	id, err := tree.lookupID(path)
	if err != nil {
		return err
	}
	node := &tree.nodes[id]
	if node.Kind == KindFile {
		tree.setFileSelected(id, !node.selected)
		return nil
	}
	tree.setSubtreeSelected(id, node.State() != SelectionFull)
	return nil
}

// SelectAllUnder selects path and every file beneath it.
func (tree *Tree) SelectAllUnder(path string) error {
	id, err := tree.lookupID(path)
	if err != nil {
		return err
	}
	tree.setSubtreeSelected(id, true)
	return nil
}

// DeselectAllUnder deselects path and every file beneath it.
func (tree *Tree) DeselectAllUnder(path string) error {
	id, err := tree.lookupID(path)
	if err != nil {
		return err
	}
	tree.setSubtreeSelected(id, false)
	return nil
}

// SelectAll selects every file in the tree.
func (tree *Tree) SelectAll() {
	tree.setSubtreeSelected(rootID, true)
}

// ClearSelection deselects every file in the tree.
func (tree *Tree) ClearSelection() {
	tree.setSubtreeSelected(rootID, false)
}

// SelectionState returns the displayed state of the node at path.
func (tree *Tree) SelectionState(path string) (SelectionState, error) {
	id, err := tree.lookupID(path)
	if err != nil {
		return SelectionNone, err
	}
	return tree.nodes[id].State(), nil
}

// SelectedLeaves returns the paths of exactly the selected file nodes,
// sorted. This is the input set for [Apply] and [Discard].
func (tree *Tree) SelectedLeaves() []string {
	var selected []string
	tree.Walk(func(node Node) bool {
		if node.Kind == KindDirectory {
			return node.selectedCount > 0
		}
		if node.selected {
			selected = append(selected, node.Path)
		}
		return true
	})
	sort.Strings(selected)
	return selected
}

// SelectPaths selects each listed path that is a file node in the tree
// and ignores the rest. Returns how many were selected. Used to carry a
// selection across a rescan.
func (tree *Tree) SelectPaths(paths []string) int {
	count := 0
	for _, path := range paths {
		id, ok := tree.index[path]
		if !ok || tree.nodes[id].Kind != KindFile {
			continue
		}
		tree.setFileSelected(id, true)
		count++
	}
	return count
}

// setFileSelected updates one file and walks its ancestor chain once,
// adjusting each directory's selected count.
func (tree *Tree) setFileSelected(id NodeID, selected bool) {
	node := &tree.nodes[id]
	if node.selected == selected {
		return
	}
	node.selected = selected
	delta := 1
	if !selected {
		delta = -1
	}
	tree.adjustAncestors(node.parent, delta)
}

// setSubtreeSelected sets every file under id to selected, fixes the
// counts inside the subtree, and then applies the net change to the
// ancestors above id.
func (tree *Tree) setSubtreeSelected(id NodeID, selected bool) {
	delta := tree.markSubtree(id, selected)
	if delta != 0 {
		tree.adjustAncestors(tree.nodes[id].parent, delta)
	}
}

// markSubtree returns the change in selected-file count within id.
func (tree *Tree) markSubtree(id NodeID, selected bool) int {
	node := &tree.nodes[id]
	if node.Kind == KindFile {
		if node.selected == selected {
			return 0
		}
		node.selected = selected
		if selected {
			return 1
		}
		return -1
	}
	delta := 0
	for _, child := range node.children {
		delta += tree.markSubtree(child, selected)
	}
	node.selectedCount += delta
	return delta
}

// adjustAncestors adds delta to the selected count of id and every
// directory above it.
func (tree *Tree) adjustAncestors(id NodeID, delta int) {
	for ancestor := id; ancestor != noNode; ancestor = tree.nodes[ancestor].parent {
		tree.nodes[ancestor].selectedCount += delta
	}
}
