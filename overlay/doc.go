// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package overlay audits the writable upper layer of a copy-on-write
// sandbox against the read-only base tree it was layered over, and
// commits or discards the changes it finds.
//
// A sandboxed process writes into the overlay directory while the base
// stays untouched. After the process exits, the operator reviews what
// changed and decides, file by file, what reaches the real filesystem.
// The package provides the pieces of that review:
//
//   - [Roots.Classify] decides whether an overlay entry is absent from
//     the base, identical to it, or different from it
//   - [Scan] walks the overlay and builds a [Tree] of the entries that
//     matter (New, Modified, or Unsupported), pruning identical files
//     and empty directories
//   - [Tree] holds per-file selection with derived directory state
//     (full, partial, none), stored as an arena keyed by path
//   - [Render] produces a hunked line diff for a file node
//   - [Apply] copies selected files into the base, re-reads them to
//     verify the write, and only then removes the overlay copy
//   - [Discard] permanently removes files or subtrees from the overlay
//   - [Watcher] reports changes under the overlay via inotify so a
//     long-running review can rescan
//
// The engine holds no state between calls. The caller owns the [Roots]
// value and the [Tree], passes them into every operation, and rescans
// (or calls [Tree.Remove]) after a mutating batch.
//
// Failures degrade rather than abort. An unreadable subdirectory becomes
// a [ScanWarning] and the rest of the tree is still returned. Each path
// in an [Apply] or [Discard] batch gets its own outcome; one failure
// never stops the others. The only fatal scan error is an invalid root
// ([ErrInvalidRoot]).
//
// Overlay whiteouts (the character devices and .wh. marker files that
// record deletions of base entries) are not content. [Scan] reports
// them in [ScanReport.Whiteouts] and leaves them out of the tree.
//
// This package never touches a base file except to write verified
// content into it during [Apply]. It never deletes a base file.
package overlay
