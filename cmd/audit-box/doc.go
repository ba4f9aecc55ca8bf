// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// audit-box runs untrusted commands in a bubblewrap sandbox over an
// overlayfs mount and lets the operator review, apply, or discard what
// they wrote.
//
// A typical session:
//
//	audit-box new --base ~/src/project
//	audit-box run -- ./configure && make
//	audit-box review
//	audit-box close
//
// The sandbox sees the base directory as usual, but its writes land in
// the session's overlay directory. status, diff, apply, and discard
// give the same operations as the review browser for scripts.
package main
