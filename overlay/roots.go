// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Roots is the pair of directories every engine operation works on.
// Overlay is the writable upper layer the sandboxed process wrote into;
// Base is the tree it saw as read-only. The value is passed explicitly
// into each call: the engine keeps no reference to it.
type Roots struct {
	Overlay string `json:"overlay"`
	Base    string `json:"base"`
}

// Validate checks that both roots exist and are directories. Both are
// checked so the error names every bad root, joined with errors.Join.
func (roots Roots) Validate() error {
	var errs []error
	for _, root := range []struct {
		label string
		path  string
	}{
		{"overlay", roots.Overlay},
		{"base", roots.Base},
	} {
		if root.path == "" {
			errs = append(errs, fmt.Errorf("%s root: %w: empty path", root.label, ErrInvalidRoot))
			continue
		}
		info, err := os.Stat(root.path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s root %s: %w: %v", root.label, root.path, ErrInvalidRoot, err))
			continue
		}
		if !info.IsDir() {
			errs = append(errs, fmt.Errorf("%s root %s: %w", root.label, root.path, ErrInvalidRoot))
		}
	}
	return errors.Join(errs...)
}

// OverlayPath returns the absolute-or-root-relative filesystem path of
// a tree path inside the overlay root.
func (roots Roots) OverlayPath(relative string) (string, error) {
	clean, err := CleanPath(relative)
	if err != nil {
		return "", err
	}
	return filepath.Join(roots.Overlay, filepath.FromSlash(clean)), nil
}

// BasePath returns the filesystem path of a tree path inside the base
// root.
func (roots Roots) BasePath(relative string) (string, error) {
	clean, err := CleanPath(relative)
	if err != nil {
		return "", err
	}
	return filepath.Join(roots.Base, filepath.FromSlash(clean)), nil
}

// CleanPath normalizes a tree path: slash-separated, relative, with no
// "." or ".." components. The empty string names the root itself.
// Absolute paths and paths that climb out of the root are rejected with
// [ErrEscapesRoot].
func CleanPath(relative string) (string, error) {
	slashed := filepath.ToSlash(relative)
	if strings.HasPrefix(slashed, "/") {
		return "", fmt.Errorf("%q: %w", relative, ErrEscapesRoot)
	}
	for _, component := range strings.Split(slashed, "/") {
		if component == ".." {
			return "", fmt.Errorf("%q: %w", relative, ErrEscapesRoot)
		}
	}
	clean := path.Clean(slashed)
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// parentPath returns the tree path of the directory containing
// relative, or "" for top-level entries.
func parentPath(relative string) string {
	index := strings.LastIndexByte(relative, '/')
	if index < 0 {
		return ""
	}
	return relative[:index]
}

// baseName returns the final component of a tree path.
func baseName(relative string) string {
	return relative[strings.LastIndexByte(relative, '/')+1:]
}

// joinPath joins a tree directory path and a child name.
func joinPath(directory, name string) string {
	if directory == "" {
		return name
	}
	return directory + "/" + name
}

// checkOverlayParents verifies that no intermediate directory between
// the overlay root and relative is a symlink. Removing or reading
// through a symlinked parent would reach outside the overlay.
func (roots Roots) checkOverlayParents(relative string) error {
	current := roots.Overlay
	parent := parentPath(relative)
	if parent == "" {
		return nil
	}
	for _, component := range strings.Split(parent, "/") {
		current = filepath.Join(current, component)
		info, err := os.Lstat(current)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%s: %w (symlinked directory %s)", relative, ErrEscapesRoot, current)
		}
	}
	return nil
}

// pruneEmptyOverlayParents removes now-empty directories above a
// removed overlay entry, stopping at the first non-empty directory or
// at the overlay root.
func (roots Roots) pruneEmptyOverlayParents(relative string) {
	for directory := parentPath(relative); directory != ""; directory = parentPath(directory) {
		target := filepath.Join(roots.Overlay, filepath.FromSlash(directory))
		if err := os.Remove(target); err != nil {
			return
		}
	}
}
