// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reviewui implements the interactive overlay reviewer: a
// bubbletea program showing the scanned change tree beside a diff of
// the entry under the cursor.
//
// The operator selects files with space (directories select or clear
// every file beneath them), then applies the selection to the base or
// discards it from the overlay. Both operations ask for confirmation,
// run in the background, are recorded in the session journal when one
// is configured, and are followed by a rescan that keeps the cursor
// and the selection on paths that still exist.
//
// When [Options.Changes] is wired to an [overlay.Watcher], activity in
// the overlay triggers a rescan and the affected rows are briefly
// highlighted. Log records reach the status bar through
// [TUILogHandler] rather than being written to the terminal.
package reviewui
