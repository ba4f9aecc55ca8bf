// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"io/fs"
	"strings"

	"golang.org/x/sys/unix"
)

// Whiteout markers used by overlayfs and by OCI/aufs-style layers.
const (
	whiteoutPrefix = ".wh."
	opaqueMarker   = ".wh..wh..opq"
)

// Whiteout is a deletion recorded in the overlay: the sandboxed process
// removed Path from its view of the base. Opaque whiteouts hide the
// whole base directory at Path.
//
// Whiteouts are reported so callers can show them, but the engine does
// not apply them: there is no Deleted status, and the engine never
// removes base files.
type Whiteout struct {
	Path   string `json:"path"`
	Opaque bool   `json:"opaque,omitempty"`
}

// whiteoutFor reports whether the overlay entry at directory/name is a
// whiteout marker and, if so, which base path it hides. absolutePath is
// the entry's filesystem path, used to read the device number of
// character devices.
func whiteoutFor(directory, name, absolutePath string, mode fs.FileMode) (Whiteout, bool) {
	if name == opaqueMarker {
		return Whiteout{Path: directory, Opaque: true}, true
	}
	if strings.HasPrefix(name, whiteoutPrefix) && len(name) > len(whiteoutPrefix) {
		return Whiteout{Path: joinPath(directory, name[len(whiteoutPrefix):])}, true
	}
	if mode.Type() == fs.ModeDevice|fs.ModeCharDevice && isZeroDevice(absolutePath) {
		return Whiteout{Path: joinPath(directory, name)}, true
	}
	return Whiteout{}, false
}

// isZeroDevice reports whether path is a 0/0 character device, the
// native overlayfs whiteout.
func isZeroDevice(path string) bool {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return false
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFCHR {
		return false
	}
	device := uint64(stat.Rdev)
	return unix.Major(device) == 0 && unix.Minor(device) == 0
}
