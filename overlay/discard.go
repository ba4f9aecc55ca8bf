// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"context"
	"fmt"
	"os"
)

// DiscardResult is the outcome of discarding one path.
type DiscardResult uint8

const (
	// Deleted means the path no longer exists in the overlay.
	Deleted DiscardResult = iota

	// DiscardFailed means the overlay entry could not be removed.
	DiscardFailed
)

func (result DiscardResult) String() string {
	switch result {
	case Deleted:
		return "deleted"
	case DiscardFailed:
		return "io_error"
	default:
		return fmt.Sprintf("DiscardResult(%d)", uint8(result))
	}
}

// MarshalText renders the result by name in JSON and CBOR output.
func (result DiscardResult) MarshalText() ([]byte, error) {
	return []byte(result.String()), nil
}

// DiscardOutcome reports what happened to one path in a [Discard]
// batch. Err is a *[PathError] when Result is DiscardFailed.
type DiscardOutcome struct {
	Path   string
	Result DiscardResult
	Err    error
}

// Discard permanently removes files or whole subtrees from the overlay.
// The base root is never touched. There is no trash and no undo: the
// caller must confirm with the operator first.
//
// Paths are processed in sorted order. A path inside another requested
// path is covered by the ancestor's removal and reports the ancestor's
// result. A path that no longer exists reports Deleted. Directories
// left empty above a removed path are pruned. The overlay root itself
// and paths escaping it are refused. Cancelling ctx stops the batch;
// remaining paths report DiscardFailed.
func Discard(ctx context.Context, roots Roots, paths []string) []DiscardOutcome {
	sorted := uniqueSorted(paths)
	outcomes := make([]DiscardOutcome, 0, len(sorted))
	results := make(map[string]DiscardOutcome, len(sorted))

	for _, relative := range sorted {
		if ancestor, ok := coveringAncestor(relative, results); ok {
			outcomes = append(outcomes, DiscardOutcome{Path: relative, Result: ancestor.Result, Err: ancestor.Err})
			continue
		}

		var outcome DiscardOutcome
		if err := ctx.Err(); err != nil {
			outcome = DiscardOutcome{
				Path:   relative,
				Result: DiscardFailed,
				Err:    &PathError{Op: "discard", Path: relative, Err: context.Cause(ctx)},
			}
		} else {
			outcome = discardOne(roots, relative)
		}
		results[relative] = outcome
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// coveringAncestor returns the outcome of the nearest requested
// ancestor of relative that has already been processed.
func coveringAncestor(relative string, results map[string]DiscardOutcome) (DiscardOutcome, bool) {
	for directory := parentPath(relative); directory != ""; directory = parentPath(directory) {
		if outcome, ok := results[directory]; ok {
			return outcome, true
		}
	}
	return DiscardOutcome{}, false
}

func discardOne(roots Roots, relative string) DiscardOutcome {
	fail := func(err error) DiscardOutcome {
		return DiscardOutcome{
			Path:   relative,
			Result: DiscardFailed,
			Err:    &PathError{Op: "discard", Path: relative, Err: err},
		}
	}

	clean, err := CleanPath(relative)
	if err != nil {
		return fail(err)
	}
	if clean == "" {
		return fail(fmt.Errorf("refusing to discard the overlay root"))
	}
	if clean != relative {
		return fail(fmt.Errorf("%q is not a clean path: %w", relative, ErrEscapesRoot))
	}
	if err := roots.checkOverlayParents(relative); err != nil {
		return fail(err)
	}

	overlayPath, _ := roots.OverlayPath(relative)
	if err := os.RemoveAll(overlayPath); err != nil {
		return fail(err)
	}
	roots.pruneEmptyOverlayParents(relative)
	return DiscardOutcome{Path: relative, Result: Deleted}
}
