// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot is returned by [Scan] and [Roots.Validate] when the
	// overlay or base root does not exist or is not a directory.
	ErrInvalidRoot = errors.New("root is not a directory")

	// ErrUnknownPath is returned by [Tree] operations given a path that
	// is not in the tree.
	ErrUnknownPath = errors.New("path not in tree")

	// ErrNotRenderable is returned by [Render] for directories and for
	// entries with no textual content to compare.
	ErrNotRenderable = errors.New("entry cannot be rendered as a diff")

	// ErrVerificationFailed marks an [Apply] outcome where the content
	// read back from the base differs from what was written.
	ErrVerificationFailed = errors.New("base content does not match overlay after write")

	// ErrUnsupportedEntry is returned when an operation meets a device
	// node, socket, FIFO, or directory where it needs a regular file or
	// symlink.
	ErrUnsupportedEntry = errors.New("unsupported file type")

	// ErrEscapesRoot is returned for relative paths that are absolute,
	// contain "..", or pass through a symlinked directory in the overlay.
	ErrEscapesRoot = errors.New("path escapes root")
)

// CompareError reports that a single entry could not be compared
// against the base: the file vanished or became unreadable between the
// directory listing and the content read. The scanner records it as a
// [WarningCompareIO] and treats the entry as absent for that pass.
type CompareError struct {
	Path string
	Err  error
}

func (e *CompareError) Error() string {
	return fmt.Sprintf("comparing %s: %v", e.Path, e.Err)
}

func (e *CompareError) Unwrap() error { return e.Err }

// PathError is the per-path failure carried by [ApplyOutcome] and
// [DiscardOutcome]. Op names the step that failed ("read", "mkdir",
// "write", "verify", "remove", "discard").
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }
