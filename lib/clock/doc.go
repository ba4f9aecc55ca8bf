// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that stamps records or waits on a timer accepts a [Clock]
// instead of calling time.Now or time.After directly. Production wiring
// passes [Real]; tests pass [Fake] and move time with
// [FakeClock.Advance]:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go watcher.run()              // calls fake.After(debounce)
//	fake.WaitForTimers(1)         // wait until the timer is registered
//	fake.Advance(debounce)        // fire it deterministically
//
// audit-box uses it for journal timestamps, session creation times,
// and the overlay watcher's debounce window.
package clock
