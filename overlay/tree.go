// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"fmt"
	"io/fs"
	"sort"
)

// Kind distinguishes file nodes (selectable leaves) from directories
// (structural nodes whose selection state is derived).
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

func (kind Kind) String() string {
	if kind == KindDirectory {
		return "directory"
	}
	return "file"
}

// MarshalText renders the kind by name in JSON output.
func (kind Kind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// Status is the classification of a file node, computed once at scan
// time.
type Status uint8

const (
	// StatusNone is the status of directories.
	StatusNone Status = iota

	// StatusNew marks an overlay file with nothing at the same path in
	// the base.
	StatusNew

	// StatusModified marks an overlay file whose content differs from
	// the base file at the same path.
	StatusModified

	// StatusUnsupported marks a device node, socket, or FIFO. These are
	// listed so the operator can see and discard them, but they are
	// never content-compared or applied.
	StatusUnsupported
)

func (status Status) String() string {
	switch status {
	case StatusNone:
		return "none"
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Status(%d)", uint8(status))
	}
}

// MarshalText lets statuses appear by name in JSON and CBOR output.
func (status Status) MarshalText() ([]byte, error) {
	return []byte(status.String()), nil
}

// Marker returns the single-character badge used in listings.
func (status Status) Marker() string {
	switch status {
	case StatusNew:
		return "N"
	case StatusModified:
		return "M"
	case StatusUnsupported:
		return "?"
	default:
		return " "
	}
}

// SelectionState is the displayed selection of a node. Files are
// either SelectionFull or SelectionNone.
type SelectionState uint8

const (
	SelectionNone SelectionState = iota
	SelectionPartial
	SelectionFull
)

func (state SelectionState) String() string {
	switch state {
	case SelectionNone:
		return "none"
	case SelectionPartial:
		return "partial"
	case SelectionFull:
		return "full"
	default:
		return fmt.Sprintf("SelectionState(%d)", uint8(state))
	}
}

// Checkbox returns the "[x]", "[-]", "[ ]" marker for the state.
func (state SelectionState) Checkbox() string {
	switch state {
	case SelectionFull:
		return "[x]"
	case SelectionPartial:
		return "[-]"
	default:
		return "[ ]"
	}
}

// NodeID indexes a node in the tree's arena.
type NodeID int32

const noNode NodeID = -1

// rootID is the arena index of the root directory node.
const rootID NodeID = 0

// Node is one entry in a [Tree]. Values returned by tree accessors are
// copies: mutating them does not change the tree.
type Node struct {
	// Path is slash-separated and relative to both roots. The root node
	// has the empty path.
	Path string

	// Name is the final path component.
	Name string

	Kind   Kind
	Status Status

	// Symlink is set for file nodes whose overlay entry is a symbolic
	// link. They are compared and applied by link target.
	Symlink bool

	// Size and Mode describe the overlay entry at scan time.
	Size int64
	Mode fs.FileMode

	// Depth is the number of path components; top-level entries have
	// depth 1 and the root has depth 0.
	Depth int

	parent   NodeID
	children []NodeID
	removed  bool

	// selected is meaningful for file nodes only.
	selected bool

	// fileCount and selectedCount are maintained for directories: the
	// number of file descendants, and how many of them are selected.
	fileCount     int
	selectedCount int
}

// IsDir reports whether the node is a directory.
func (node Node) IsDir() bool { return node.Kind == KindDirectory }

// State returns the node's displayed selection state.
func (node Node) State() SelectionState {
	if node.Kind == KindFile {
		if node.selected {
			return SelectionFull
		}
		return SelectionNone
	}
	switch {
	case node.fileCount > 0 && node.selectedCount == node.fileCount:
		return SelectionFull
	case node.selectedCount > 0:
		return SelectionPartial
	default:
		return SelectionNone
	}
}

// FileCount returns the number of file descendants of a directory, or
// 1 for a file.
func (node Node) FileCount() int {
	if node.Kind == KindFile {
		return 1
	}
	return node.fileCount
}

// Tree is the scanned overlay: an arena of nodes with a path index.
// Parent links are arena indices, so walks from a leaf to the root are
// bounded by depth and cannot cycle.
//
// A Tree is not safe for concurrent use. The caller owns it and may
// discard or rebuild it at will.
type Tree struct {
	nodes []Node
	index map[string]NodeID
}

// NewTree returns a tree holding only the root directory.
func NewTree() *Tree {
	tree := &Tree{index: make(map[string]NodeID)}
	tree.nodes = append(tree.nodes, Node{
		Kind:   KindDirectory,
		parent: noNode,
	})
	tree.index[""] = rootID
	return tree
}

// Len returns the number of file nodes in the tree.
func (tree *Tree) Len() int {
	return tree.nodes[rootID].fileCount
}

// Empty reports whether the tree has no file nodes.
func (tree *Tree) Empty() bool {
	return tree.Len() == 0
}

// Root returns a copy of the root node.
func (tree *Tree) Root() Node {
	return tree.nodes[rootID]
}

// Lookup returns a copy of the node at path.
func (tree *Tree) Lookup(path string) (Node, bool) {
	id, ok := tree.index[path]
	if !ok {
		return Node{}, false
	}
	return tree.nodes[id], true
}

// Children returns copies of the direct children of the directory at
// path, ordered by name.
func (tree *Tree) Children(path string) ([]Node, error) {
	id, err := tree.lookupID(path)
	if err != nil {
		return nil, err
	}
	children := make([]Node, 0, len(tree.nodes[id].children))
	for _, child := range tree.nodes[id].children {
		children = append(children, tree.nodes[child])
	}
	return children, nil
}

// Walk visits every node except the root in pre-order, children by
// name. Returning false from visit skips the node's descendants.
func (tree *Tree) Walk(visit func(node Node) bool) {
	var walk func(id NodeID)
	walk = func(id NodeID) {
		for _, child := range tree.nodes[id].children {
			if visit(tree.nodes[child]) {
				walk(child)
			}
		}
	}
	walk(rootID)
}

// Leaves returns the paths of all file nodes in sorted order.
func (tree *Tree) Leaves() []string {
	var leaves []string
	tree.Walk(func(node Node) bool {
		if node.Kind == KindFile {
			leaves = append(leaves, node.Path)
		}
		return true
	})
	sort.Strings(leaves)
	return leaves
}

// lookupID returns the arena index for path or an error wrapping
// ErrUnknownPath.
func (tree *Tree) lookupID(path string) (NodeID, error) {
	id, ok := tree.index[path]
	if !ok {
		return noNode, fmt.Errorf("%q: %w", path, ErrUnknownPath)
	}
	return id, nil
}

// addFile inserts a file node, creating missing ancestor directories.
// The path must not already be present.
func (tree *Tree) addFile(path string, status Status, symlink bool, size int64, mode fs.FileMode) NodeID {
	parent := tree.ensureDirectory(parentPath(path))
	id := tree.appendNode(parent, Node{
		Path:    path,
		Name:    baseName(path),
		Kind:    KindFile,
		Status:  status,
		Symlink: symlink,
		Size:    size,
		Mode:    mode,
	})
	for ancestor := parent; ancestor != noNode; ancestor = tree.nodes[ancestor].parent {
		tree.nodes[ancestor].fileCount++
	}
	return id
}

// ensureDirectory returns the node for a directory path, creating it
// and its ancestors on demand.
func (tree *Tree) ensureDirectory(path string) NodeID {
	if id, ok := tree.index[path]; ok {
		return id
	}
	parent := tree.ensureDirectory(parentPath(path))
	return tree.appendNode(parent, Node{
		Path: path,
		Name: baseName(path),
		Kind: KindDirectory,
		Mode: fs.ModeDir,
	})
}

// appendNode stores node in the arena and links it under parent,
// keeping the parent's children sorted by name.
func (tree *Tree) appendNode(parent NodeID, node Node) NodeID {
	id := NodeID(len(tree.nodes))
	node.parent = parent
	node.Depth = tree.nodes[parent].Depth + 1
	tree.nodes = append(tree.nodes, node)
	tree.index[node.Path] = id

	siblings := tree.nodes[parent].children
	position := sort.Search(len(siblings), func(i int) bool {
		return tree.nodes[siblings[i]].Name >= node.Name
	})
	siblings = append(siblings, noNode)
	copy(siblings[position+1:], siblings[position:])
	siblings[position] = id
	tree.nodes[parent].children = siblings
	return id
}

// Remove deletes the node at path and its whole subtree, then prunes
// ancestor directories left without files. Selection counters on the
// remaining ancestors stay consistent. Used after [Apply] or [Discard]
// to drop finished paths without a full rescan.
func (tree *Tree) Remove(path string) error {
	id, err := tree.lookupID(path)
	if err != nil {
		return err
	}
	if id == rootID {
		return fmt.Errorf("cannot remove the tree root")
	}

	removedFiles, removedSelected := tree.detachSubtree(id)

	parent := tree.nodes[id].parent
	tree.unlinkChild(parent, id)
	for ancestor := parent; ancestor != noNode; ancestor = tree.nodes[ancestor].parent {
		tree.nodes[ancestor].fileCount -= removedFiles
		tree.nodes[ancestor].selectedCount -= removedSelected
	}

	for ancestor := parent; ancestor != rootID && ancestor != noNode; {
		node := &tree.nodes[ancestor]
		if len(node.children) > 0 {
			break
		}
		next := node.parent
		node.removed = true
		delete(tree.index, node.Path)
		tree.unlinkChild(next, ancestor)
		ancestor = next
	}
	return nil
}

// detachSubtree marks id and its descendants removed and drops them
// from the index. Returns how many files and selected files it held.
func (tree *Tree) detachSubtree(id NodeID) (files, selected int) {
	node := &tree.nodes[id]
	node.removed = true
	delete(tree.index, node.Path)
	if node.Kind == KindFile {
		if node.selected {
			return 1, 1
		}
		return 1, 0
	}
	for _, child := range node.children {
		childFiles, childSelected := tree.detachSubtree(child)
		files += childFiles
		selected += childSelected
	}
	return files, selected
}

// unlinkChild removes child from parent's ordered children.
func (tree *Tree) unlinkChild(parent, child NodeID) {
	children := tree.nodes[parent].children
	for index, candidate := range children {
		if candidate == child {
			tree.nodes[parent].children = append(children[:index:index], children[index+1:]...)
			return
		}
	}
}
