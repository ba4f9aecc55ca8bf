// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
)

func TestScrollbarThumb(t *testing.T) {
	tests := []struct {
		name       string
		bar        Scrollbar
		wantOffset int
		wantSize   int
	}{
		{"content fits", Scrollbar{Height: 10, Total: 5, Visible: 10}, 0, 10},
		{"top", Scrollbar{Height: 10, Total: 100, Visible: 10, Offset: 0}, 0, 1},
		{"bottom", Scrollbar{Height: 10, Total: 100, Visible: 10, Offset: 90}, 9, 1},
		{"half", Scrollbar{Height: 10, Total: 20, Visible: 10, Offset: 10}, 5, 5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			offset, size := test.bar.thumb()
			if offset != test.wantOffset || size != test.wantSize {
				t.Errorf("thumb() = (%d, %d), want (%d, %d)", offset, size, test.wantOffset, test.wantSize)
			}
		})
	}
}

func TestScrollbarRender(t *testing.T) {
	rendered := ansi.Strip(Scrollbar{Height: 4, Total: 8, Visible: 4, Offset: 4}.Render(DefaultTheme))
	if rendered != "│\n│\n┃\n┃" {
		t.Errorf("Render = %q", rendered)
	}
	if got := (Scrollbar{}).Render(DefaultTheme); got != "" {
		t.Errorf("zero-height scrollbar rendered %q", got)
	}
	if lines := strings.Count(Scrollbar{Height: 3, Total: 1, Visible: 3}.Render(DefaultTheme), "\n"); lines != 2 {
		t.Errorf("expected 3 rows, got %d newlines", lines)
	}
}

func TestHeatTracker(t *testing.T) {
	tracker := NewHeatTracker()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if heat := tracker.Heat("a.txt", start); heat != 0 {
		t.Errorf("untracked heat = %v", heat)
	}

	tracker.Ignite("a.txt", HeatPut, start)
	tracker.Ignite("b.txt", HeatRemove, start)

	if heat := tracker.Heat("a.txt", start); heat != 1.0 {
		t.Errorf("heat at ignition = %v, want 1", heat)
	}
	if heat := tracker.Heat("a.txt", start.Add(HeatDecayDuration/2)); heat != 0.5 {
		t.Errorf("heat at half decay = %v, want 0.5", heat)
	}
	if tint := tracker.Tint(DefaultTheme, "a.txt", start); tint != DefaultTheme.HotAccentPut {
		t.Errorf("put tint = %q", tint)
	}
	if tint := tracker.Tint(DefaultTheme, "b.txt", start); tint != DefaultTheme.HotAccentRemove {
		t.Errorf("remove tint = %q", tint)
	}
	if tint := tracker.Tint(DefaultTheme, "a.txt", start.Add(4*time.Second)); tint != "" {
		t.Errorf("cooled tint = %q, want none", tint)
	}

	if !tracker.HasHot(start.Add(time.Second)) {
		t.Error("HasHot should be true during decay")
	}
	if tracker.HasHot(start.Add(HeatDecayDuration)) {
		t.Error("HasHot should be false after decay")
	}
	if len(tracker.entries) != 0 {
		t.Errorf("decayed entries not collected: %d left", len(tracker.entries))
	}
}
