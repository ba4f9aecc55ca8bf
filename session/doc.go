// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session records the active audit-box session so that later
// commands find the overlay without being told where it is.
//
// "audit-box new" calls [Create], which makes a temporary directory
// with overlay/ and work/ subdirectories and writes a JSON record to
// session.json in the configured session directory. "run", "status",
// "diff", "apply", "discard", "review", and "log" call [Load] when no
// explicit --overlay/--base pair is given. "close" calls [Remove] and
// [Clear].
//
// There is one active session per session directory. Creating a new
// one replaces the record but leaves the previous session's files on
// disk.
package session
