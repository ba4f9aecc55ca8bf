// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test with message.
//
//	testutil.RequireReceive(t, watcher.Changes(), 5*time.Second, "waiting for change")
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, message string) T {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", message)
		}
		return value
	case <-time.After(timeout): //nolint:realclock test hang prevention
		t.Fatalf("timed out after %v: %s", timeout, message)
	}
	panic("unreachable")
}

// RequireEmpty fails the test if a value is already waiting on ch. It
// does not block: pair it with a fake clock that has not yet fired.
func RequireEmpty[T any](t testing.TB, ch <-chan T, message string) {
	t.Helper()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed: %s", message)
		}
		t.Fatalf("unexpected value %v: %s", value, message)
	default:
	}
}
