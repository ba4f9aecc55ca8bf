// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides the terminal building blocks for audit-box's
// reviewer: the color [Theme], modal [Dialog] boxes spliced over the
// main view, scrollbars, fzf-backed fuzzy matching of paths, and
// change highlighting that fades over a few seconds.
//
// The components are rendering helpers, not bubbletea models. The
// review model in lib/reviewui owns the state, routes keys, and calls
// into this package to draw.
package tui
