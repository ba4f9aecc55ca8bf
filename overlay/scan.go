// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
)

// WarningKind classifies a non-fatal scan problem.
type WarningKind uint8

const (
	// WarningScanIO means a directory could not be listed. Its subtree
	// is missing from the tree.
	WarningScanIO WarningKind = iota

	// WarningCompareIO means a single entry vanished or could not be
	// read for comparison. It is missing from the tree for this pass.
	WarningCompareIO
)

func (kind WarningKind) String() string {
	switch kind {
	case WarningScanIO:
		return "scan_io"
	case WarningCompareIO:
		return "compare_io"
	default:
		return fmt.Sprintf("WarningKind(%d)", uint8(kind))
	}
}

// MarshalText renders the kind by name in JSON output.
func (kind WarningKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

// ScanWarning is a problem that degraded part of a scan without failing
// it.
type ScanWarning struct {
	Path string      `json:"path"`
	Kind WarningKind `json:"kind"`
	Err  error       `json:"-"`
}

func (warning ScanWarning) Error() string {
	return fmt.Sprintf("%s %s: %v", warning.Kind, warning.Path, warning.Err)
}

// ScanOptions tunes a scan. The zero value scans everything and logs
// nothing.
type ScanOptions struct {
	// Exclude lists entry names skipped wherever they appear, for
	// scaffolding colocated with the overlay content (for example an
	// overlayfs "work" directory).
	Exclude []string

	// Logger receives debug records for each warning. Nil discards.
	Logger *slog.Logger
}

// ScanReport describes everything a scan saw besides the tree itself.
type ScanReport struct {
	// Warnings lists the subtrees and entries that could not be read.
	Warnings []ScanWarning `json:"warnings"`

	// Whiteouts lists base paths the sandboxed process deleted.
	Whiteouts []Whiteout `json:"whiteouts"`

	// Identical counts overlay files pruned because the base already
	// holds the same content.
	Identical int `json:"identical"`

	// Examined counts overlay entries (files, links, specials) that
	// were classified.
	Examined int `json:"examined"`
}

// Scan walks the overlay root and returns a tree of every entry that
// differs from the base: New and Modified files and links, plus
// Unsupported special files. Identical files and directories left
// without surfaced descendants are pruned. Children are ordered by
// name.
//
// Both roots must be existing directories; otherwise Scan fails with an
// error wrapping [ErrInvalidRoot] rather than returning an empty tree.
// Unreadable subdirectories and entries that cannot be compared are
// recorded in the report and the rest of the tree is still returned.
// Cancelling ctx stops the walk and returns ctx.Err().
func Scan(ctx context.Context, roots Roots, options ScanOptions) (*Tree, *ScanReport, error) {
	if err := roots.Validate(); err != nil {
		return nil, nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scanner := &scanner{
		ctx:     ctx,
		roots:   roots,
		exclude: options.Exclude,
		logger:  logger,
		tree:    NewTree(),
		report:  &ScanReport{},
	}
	if err := scanner.walkDirectory(""); err != nil {
		return nil, nil, err
	}

	logger.Debug("overlay scan complete",
		"overlay", roots.Overlay,
		"base", roots.Base,
		"files", scanner.tree.Len(),
		"identical", scanner.report.Identical,
		"warnings", len(scanner.report.Warnings),
		"whiteouts", len(scanner.report.Whiteouts),
	)
	return scanner.tree, scanner.report, nil
}

type scanner struct {
	ctx     context.Context
	roots   Roots
	exclude []string
	logger  *slog.Logger
	tree    *Tree
	report  *ScanReport
}

// walkDirectory lists one overlay directory and processes its entries
// in name order. Only context cancellation is returned as an error;
// everything else becomes a warning.
func (s *scanner) walkDirectory(directory string) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	absoluteDirectory := filepath.Join(s.roots.Overlay, filepath.FromSlash(directory))
	entries, err := os.ReadDir(absoluteDirectory)
	if err != nil {
		s.warn(directory, WarningScanIO, err)
		if len(entries) == 0 {
			return nil
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		if slices.Contains(s.exclude, name) {
			continue
		}
		relative := joinPath(directory, name)
		absolute := filepath.Join(absoluteDirectory, name)

		info, err := entry.Info()
		if err != nil {
			s.warn(relative, WarningCompareIO, err)
			continue
		}
		mode := info.Mode()

		if whiteout, ok := whiteoutFor(directory, name, absolute, mode); ok {
			s.report.Whiteouts = append(s.report.Whiteouts, whiteout)
			continue
		}

		switch {
		case mode.IsDir():
			if err := s.walkDirectory(relative); err != nil {
				return err
			}

		case mode.IsRegular() || mode.Type() == fs.ModeSymlink:
			s.report.Examined++
			classification, err := s.roots.Classify(relative)
			if err != nil {
				s.warn(relative, WarningCompareIO, err)
				continue
			}
			symlink := mode.Type() == fs.ModeSymlink
			switch classification {
			case IdenticalToBase:
				s.report.Identical++
			case AbsentInBase:
				s.tree.addFile(relative, StatusNew, symlink, info.Size(), mode)
			case DifferentFromBase:
				s.tree.addFile(relative, StatusModified, symlink, info.Size(), mode)
			}

		default:
			s.report.Examined++
			s.tree.addFile(relative, StatusUnsupported, false, info.Size(), mode)
		}
	}
	return nil
}

func (s *scanner) warn(path string, kind WarningKind, err error) {
	s.report.Warnings = append(s.report.Warnings, ScanWarning{Path: path, Kind: kind, Err: err})
	s.logger.Debug("overlay scan warning", "path", path, "kind", kind.String(), "error", err)
}
