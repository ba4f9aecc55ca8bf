// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Classification is the result of comparing one overlay entry with the
// entry at the same relative path under the base root.
type Classification uint8

const (
	// AbsentInBase means nothing exists at the path in the base.
	AbsentInBase Classification = iota

	// IdenticalToBase means the base holds byte-identical content (or,
	// for symlinks, the same link target).
	IdenticalToBase

	// DifferentFromBase means the base holds something else: different
	// bytes, a different link target, or a different kind of entry.
	DifferentFromBase
)

func (classification Classification) String() string {
	switch classification {
	case AbsentInBase:
		return "absent"
	case IdenticalToBase:
		return "identical"
	case DifferentFromBase:
		return "different"
	default:
		return fmt.Sprintf("Classification(%d)", uint8(classification))
	}
}

// compareChunkSize is the read size for streaming content comparison.
const compareChunkSize = 64 * 1024

// Classify compares the overlay entry at relative with the base. The
// overlay entry must exist. Regular files are compared by size and then
// by streaming both files in fixed-size chunks, so memory use does not
// depend on file size. Symlinks are compared by link target and never
// followed. Any other overlay entry type is classified only by presence
// in the base.
//
// Read failures are returned as *[CompareError]; Classify has no side
// effects.
func (roots Roots) Classify(relative string) (Classification, error) {
	overlayPath, err := roots.OverlayPath(relative)
	if err != nil {
		return 0, &CompareError{Path: relative, Err: err}
	}
	basePath, err := roots.BasePath(relative)
	if err != nil {
		return 0, &CompareError{Path: relative, Err: err}
	}

	overlayInfo, err := os.Lstat(overlayPath)
	if err != nil {
		return 0, &CompareError{Path: relative, Err: err}
	}
	baseInfo, err := os.Lstat(basePath)
	if err != nil {
		if isAbsent(err) {
			return AbsentInBase, nil
		}
		return 0, &CompareError{Path: relative, Err: err}
	}

	overlayType := overlayInfo.Mode().Type()
	baseType := baseInfo.Mode().Type()

	switch {
	case overlayType == fs.ModeSymlink:
		if baseType != fs.ModeSymlink {
			return DifferentFromBase, nil
		}
		overlayTarget, err := os.Readlink(overlayPath)
		if err != nil {
			return 0, &CompareError{Path: relative, Err: err}
		}
		baseTarget, err := os.Readlink(basePath)
		if err != nil {
			return 0, &CompareError{Path: relative, Err: err}
		}
		if overlayTarget == baseTarget {
			return IdenticalToBase, nil
		}
		return DifferentFromBase, nil

	case overlayType.IsRegular():
		if !baseType.IsRegular() {
			return DifferentFromBase, nil
		}
		if overlayInfo.Size() != baseInfo.Size() {
			return DifferentFromBase, nil
		}
		equal, err := sameContent(overlayPath, basePath)
		if err != nil {
			return 0, &CompareError{Path: relative, Err: err}
		}
		if equal {
			return IdenticalToBase, nil
		}
		return DifferentFromBase, nil

	default:
		return DifferentFromBase, nil
	}
}

// isAbsent reports whether a base-side Lstat error means "nothing
// there". ENOTDIR covers a base path whose parent is a regular file.
func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// sameContent streams two files side by side and reports whether every
// byte matches.
func sameContent(leftPath, rightPath string) (bool, error) {
	left, err := os.Open(leftPath)
	if err != nil {
		return false, err
	}
	defer left.Close()

	right, err := os.Open(rightPath)
	if err != nil {
		return false, err
	}
	defer right.Close()

	return sameStream(left, right)
}

// sameStream compares two readers chunk by chunk.
func sameStream(left, right io.Reader) (bool, error) {
	leftBuffer := make([]byte, compareChunkSize)
	rightBuffer := make([]byte, compareChunkSize)
	for {
		leftCount, leftErr := io.ReadFull(left, leftBuffer)
		rightCount, rightErr := io.ReadFull(right, rightBuffer)

		if leftErr != nil && leftErr != io.EOF && leftErr != io.ErrUnexpectedEOF {
			return false, leftErr
		}
		if rightErr != nil && rightErr != io.EOF && rightErr != io.ErrUnexpectedEOF {
			return false, rightErr
		}
		if !bytes.Equal(leftBuffer[:leftCount], rightBuffer[:rightCount]) {
			return false, nil
		}

		leftDone := leftErr != nil
		rightDone := rightErr != nil
		if leftDone || rightDone {
			return leftDone == rightDone, nil
		}
	}
}
