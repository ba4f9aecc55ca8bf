// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for audit-box packages.
//
// [WriteTree] and [ReadTree] build and inspect small directory trees
// from a map of slash-separated paths to content, which is how the
// overlay and base fixtures in the engine tests are described.
// [Roots] creates a fresh overlay/base pair under t.TempDir().
//
// [RequireReceive] wraps the timeout safety valve pattern (select with
// a time.After fallback) so individual tests do not need direct
// time.After calls. [RequireEmpty] is its non-blocking counterpart.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no audit-box-internal dependencies.
package testutil
