// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// HeatDecayDuration is how long a row glows after its file changes.
// Heat starts at 1.0 and decays linearly to 0.0 over this duration.
const HeatDecayDuration = 5 * time.Second

// HeatTickInterval is the re-render interval while any row is hot.
const HeatTickInterval = 100 * time.Millisecond

// HeatKind distinguishes the tint used for a hot row.
type HeatKind int

const (
	// HeatPut marks a path that appeared or changed on a rescan.
	HeatPut HeatKind = iota
	// HeatRemove marks a path whose last operation failed.
	HeatRemove
)

type heatEntry struct {
	ignition time.Time
	kind     HeatKind
}

// HeatTracker maps paths to ignition timestamps so rows touched by the
// sandboxed process, or by a failed apply, stand out for a few
// seconds.
type HeatTracker struct {
	entries map[string]heatEntry
}

// NewHeatTracker creates an empty heat tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{entries: make(map[string]heatEntry)}
}

// Ignite records a change for path, restarting its decay.
func (tracker *HeatTracker) Ignite(path string, kind HeatKind, now time.Time) {
	tracker.entries[path] = heatEntry{ignition: now, kind: kind}
}

// Heat returns the intensity for path: 1.0 at ignition, decaying to
// 0.0 over [HeatDecayDuration].
func (tracker *HeatTracker) Heat(path string, now time.Time) float64 {
	entry, exists := tracker.entries[path]
	if !exists {
		return 0.0
	}
	elapsed := now.Sub(entry.ignition)
	if elapsed >= HeatDecayDuration {
		return 0.0
	}
	return 1.0 - float64(elapsed)/float64(HeatDecayDuration)
}

// Tint returns the background for a hot row, or the empty color once
// the row has cooled past half intensity.
func (tracker *HeatTracker) Tint(theme Theme, path string, now time.Time) lipgloss.Color {
	if tracker.Heat(path, now) < 0.5 {
		return ""
	}
	if tracker.entries[path].kind == HeatRemove {
		return theme.HotAccentRemove
	}
	return theme.HotAccentPut
}

// HasHot reports whether any path still has heat, meaning the tick
// timer should keep running. Fully decayed entries are dropped.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	hot := false
	for path, entry := range tracker.entries {
		if now.Sub(entry.ignition) < HeatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.entries, path)
	}
	return hot
}
