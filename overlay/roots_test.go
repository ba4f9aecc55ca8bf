// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		escapes bool
	}{
		{"a/b", "a/b", false},
		{"a//b/", "a/b", false},
		{"./a/./b", "a/b", false},
		{".", "", false},
		{"", "", false},
		{"/abs", "", true},
		{"..", "", true},
		{"a/../b", "", true},
		{"a/b/..", "", true},
		{"..hidden", "..hidden", false},
	}
	for _, test := range tests {
		got, err := CleanPath(test.input)
		if test.escapes {
			if !errors.Is(err, ErrEscapesRoot) {
				t.Errorf("CleanPath(%q) error = %v, want ErrEscapesRoot", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("CleanPath(%q): %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("CleanPath(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidateNamesEveryBadRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	err := Roots{Overlay: missing + "-overlay", Base: missing + "-base"}.Validate()
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("Validate error = %v, want ErrInvalidRoot", err)
	}
	message := err.Error()
	if !strings.Contains(message, "overlay root") || !strings.Contains(message, "base root") {
		t.Errorf("error should name both roots: %q", message)
	}

	overlay, base := t.TempDir(), t.TempDir()
	if err := (Roots{Overlay: overlay, Base: base}).Validate(); err != nil {
		t.Errorf("Validate of valid roots: %v", err)
	}
}

func TestRootPaths(t *testing.T) {
	roots := Roots{Overlay: "/o", Base: "/b"}
	got, err := roots.OverlayPath("x/y")
	if err != nil || got != "/o/x/y" {
		t.Errorf("OverlayPath = %q, %v", got, err)
	}
	got, err = roots.BasePath("")
	if err != nil || got != "/b" {
		t.Errorf("BasePath(\"\") = %q, %v", got, err)
	}
	if _, err := roots.BasePath("../x"); !errors.Is(err, ErrEscapesRoot) {
		t.Errorf("BasePath(../x) error = %v", err)
	}
}
