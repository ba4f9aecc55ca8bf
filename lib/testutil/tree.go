// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTree creates files under root from a map of slash-separated
// relative paths to content. Parent directories are created as needed.
// A path ending in "/" creates an empty directory instead of a file.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for relative, content := range files {
		path := filepath.Join(root, filepath.FromSlash(relative))
		if strings.HasSuffix(relative, "/") {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", relative, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", relative, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", relative, err)
		}
	}
}

// ReadTree returns every regular file under root as a map of
// slash-separated relative paths to content. Directories are omitted.
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(relative)] = string(content)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return files
}

// Roots creates empty "overlay" and "base" directories under a fresh
// temporary directory and returns their paths.
func Roots(t *testing.T) (overlay, base string) {
	t.Helper()
	directory := t.TempDir()
	overlay = filepath.Join(directory, "overlay")
	base = filepath.Join(directory, "base")
	for _, path := range []string{overlay, base} {
		if err := os.Mkdir(path, 0o755); err != nil {
			t.Fatalf("creating %s: %v", path, err)
		}
	}
	return overlay, base
}
