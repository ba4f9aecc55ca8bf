// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"syscall"
	"testing"
)

func scanTree(t *testing.T, roots Roots) (*Tree, *ScanReport) {
	t.Helper()
	tree, report, err := Scan(context.Background(), roots, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return tree, report
}

func requireStatus(t *testing.T, tree *Tree, path string, want Status) {
	t.Helper()
	node, ok := tree.Lookup(path)
	if !ok {
		t.Fatalf("%s missing from tree", path)
	}
	if node.Status != want {
		t.Errorf("%s status = %s, want %s", path, node.Status, want)
	}
}

func TestScanClassifiesNewAndModified(t *testing.T) {
	roots := newRoots(t,
		map[string]string{
			"a.txt":              "hello\nworld\n",
			"b.txt":              "foo\nbaz\n",
			"same.txt":           "unchanged\n",
			"deep/nested/new.go": "package nested\n",
			"deep/same.go":       "package deep\n",
			"only-identical/x":   "x",
		},
		map[string]string{
			"b.txt":            "foo\nbar\n",
			"same.txt":         "unchanged\n",
			"deep/same.go":     "package deep\n",
			"only-identical/x": "x",
		},
	)

	tree, report := scanTree(t, roots)

	requireStatus(t, tree, "a.txt", StatusNew)
	requireStatus(t, tree, "b.txt", StatusModified)
	requireStatus(t, tree, "deep/nested/new.go", StatusNew)

	if _, ok := tree.Lookup("same.txt"); ok {
		t.Error("identical file same.txt should be pruned")
	}
	if _, ok := tree.Lookup("deep/same.go"); ok {
		t.Error("identical file deep/same.go should be pruned")
	}
	if _, ok := tree.Lookup("only-identical"); ok {
		t.Error("directory with only identical files should be pruned")
	}

	if got, want := tree.Leaves(), []string{"a.txt", "b.txt", "deep/nested/new.go"}; !slices.Equal(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}
	if report.Identical != 3 {
		t.Errorf("report.Identical = %d, want 3", report.Identical)
	}
	if report.Examined != 6 {
		t.Errorf("report.Examined = %d, want 6", report.Examined)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestScanPrunesEmptyDirectories(t *testing.T) {
	roots := newRoots(t, map[string]string{"empty/": "", "empty/deeper/": "", "file": "x"}, nil)
	tree, _ := scanTree(t, roots)
	if _, ok := tree.Lookup("empty"); ok {
		t.Error("empty overlay directory should not appear in the tree")
	}
	if tree.Len() != 1 {
		t.Errorf("Len = %d, want 1", tree.Len())
	}
}

func TestScanInvalidRootsFail(t *testing.T) {
	valid := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		roots Roots
	}{
		{"both missing", Roots{Overlay: missing, Base: missing}},
		{"overlay missing", Roots{Overlay: missing, Base: valid}},
		{"base missing", Roots{Overlay: valid, Base: missing}},
		{"overlay is a file", Roots{Overlay: file, Base: valid}},
		{"empty paths", Roots{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tree, report, err := Scan(context.Background(), test.roots, ScanOptions{})
			if !errors.Is(err, ErrInvalidRoot) {
				t.Fatalf("Scan error = %v, want ErrInvalidRoot", err)
			}
			if tree != nil || report != nil {
				t.Error("Scan must not return a tree alongside a root error")
			}
		})
	}
}

func TestScanUnreadableDirectoryIsWarning(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read directories regardless of mode")
	}
	roots := newRoots(t, map[string]string{"locked/secret": "s", "visible.txt": "v"}, nil)
	locked := filepath.Join(roots.Overlay, "locked")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	tree, report := scanTree(t, roots)

	requireStatus(t, tree, "visible.txt", StatusNew)
	if _, ok := tree.Lookup("locked/secret"); ok {
		t.Error("unreadable subtree should be missing")
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", report.Warnings)
	}
	warning := report.Warnings[0]
	if warning.Path != "locked" || warning.Kind != WarningScanIO {
		t.Errorf("warning = %+v, want scan_io on locked", warning)
	}
}

func TestScanWhiteoutsAreReportedNotListed(t *testing.T) {
	roots := newRoots(t,
		map[string]string{
			".wh.removed.txt":      "",
			"dir/.wh..wh..opq":     "",
			"dir/kept.txt":         "k",
			"dir/sub/.wh.gone.bin": "",
		},
		map[string]string{"removed.txt": "r", "dir/old.txt": "o"},
	)

	tree, report := scanTree(t, roots)

	if got, want := tree.Leaves(), []string{"dir/kept.txt"}; !slices.Equal(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}
	want := []Whiteout{
		{Path: "removed.txt"},
		{Path: "dir", Opaque: true},
		{Path: "dir/sub/gone.bin"},
	}
	if !slices.Equal(report.Whiteouts, want) {
		t.Errorf("Whiteouts = %+v, want %+v", report.Whiteouts, want)
	}
}

func TestScanSpecialFilesAreUnsupported(t *testing.T) {
	roots := newRoots(t, map[string]string{"regular": "r"}, nil)
	if err := syscall.Mkfifo(filepath.Join(roots.Overlay, "pipe"), 0o644); err != nil {
		t.Skipf("mkfifo unavailable: %v", err)
	}

	tree, _ := scanTree(t, roots)
	requireStatus(t, tree, "pipe", StatusUnsupported)
	requireStatus(t, tree, "regular", StatusNew)
}

func TestScanSymlinks(t *testing.T) {
	roots := newRoots(t, nil, nil)
	mustSymlink(t, "same", filepath.Join(roots.Overlay, "unchanged-link"))
	mustSymlink(t, "same", filepath.Join(roots.Base, "unchanged-link"))
	mustSymlink(t, "/etc", filepath.Join(roots.Overlay, "etc-link"))

	tree, report := scanTree(t, roots)

	requireStatus(t, tree, "etc-link", StatusNew)
	node, _ := tree.Lookup("etc-link")
	if !node.Symlink {
		t.Error("etc-link should be marked as a symlink")
	}
	if _, ok := tree.Lookup("unchanged-link"); ok {
		t.Error("identical symlink should be pruned")
	}
	if report.Identical != 1 {
		t.Errorf("Identical = %d, want 1", report.Identical)
	}
}

func TestScanExclude(t *testing.T) {
	roots := newRoots(t, map[string]string{"work/index": "scratch", "real.txt": "r"}, nil)
	tree, _, err := Scan(context.Background(), roots, ScanOptions{Exclude: []string{"work"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got, want := tree.Leaves(), []string{"real.txt"}; !slices.Equal(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}
}

func TestScanCancelled(t *testing.T) {
	roots := newRoots(t, map[string]string{"a": "a"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Scan(ctx, roots, ScanOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Scan error = %v, want context.Canceled", err)
	}
}

func TestScanAfterApplyIsEmpty(t *testing.T) {
	roots := newRoots(t, map[string]string{"b.txt": "foo\nbaz\n"}, map[string]string{"b.txt": "foo\nbar\n"})

	tree, _ := scanTree(t, roots)
	requireStatus(t, tree, "b.txt", StatusModified)

	outcomes := Apply(context.Background(), roots, tree.Leaves(), ApplyOptions{})
	if outcomes[0].Result != Applied {
		t.Fatalf("Apply outcome = %+v", outcomes[0])
	}

	rescanned, _ := scanTree(t, roots)
	if !rescanned.Empty() {
		t.Errorf("rescan after apply should be empty, has %v", rescanned.Leaves())
	}
	if got := rescanned.SelectedLeaves(); len(got) != 0 {
		t.Errorf("applied path reappeared in selection: %v", got)
	}
}
