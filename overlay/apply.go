// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bureau-foundation/auditbox/lib/binhash"
)

// ApplyResult is the outcome of committing one file.
type ApplyResult uint8

const (
	// Applied means the base now holds verified overlay content and the
	// overlay copy was removed.
	Applied ApplyResult = iota

	// VerificationFailed means the content read back from the base did
	// not match. The base is left as written and the overlay file is
	// kept so the operator can retry.
	VerificationFailed

	// ApplyFailed means an I/O error stopped the file before or during
	// the write, or while removing the overlay copy afterwards.
	ApplyFailed
)

func (result ApplyResult) String() string {
	switch result {
	case Applied:
		return "applied"
	case VerificationFailed:
		return "verification_failed"
	case ApplyFailed:
		return "io_error"
	default:
		return fmt.Sprintf("ApplyResult(%d)", uint8(result))
	}
}

// MarshalText renders the result by name in JSON and CBOR output.
func (result ApplyResult) MarshalText() ([]byte, error) {
	return []byte(result.String()), nil
}

// ApplyOutcome reports what happened to one path in an [Apply] batch.
type ApplyOutcome struct {
	Path   string
	Result ApplyResult

	// Err is nil for Applied. For the other results it is a
	// *[PathError]; VerificationFailed outcomes wrap
	// [ErrVerificationFailed].
	Err error

	// Digest is the BLAKE3 hash of the overlay content that was read,
	// zero if the read failed.
	Digest binhash.Digest
}

// FileWriter writes content to a base path. The default is
// [AtomicWriter]; tests substitute writers that fail or corrupt.
type FileWriter interface {
	WriteFile(path string, content []byte, mode fs.FileMode) error
}

// WriterFunc adapts a function to [FileWriter].
type WriterFunc func(path string, content []byte, mode fs.FileMode) error

func (function WriterFunc) WriteFile(path string, content []byte, mode fs.FileMode) error {
	return function(path, content, mode)
}

// AtomicWriter writes to a temporary sibling and renames it over the
// target, so a reader of the base never sees a half-written file.
type AtomicWriter struct {
	// Sync flushes the temporary file to stable storage before the
	// rename.
	Sync bool
}

// WriteFile implements [FileWriter].
func (writer AtomicWriter) WriteFile(path string, content []byte, mode fs.FileMode) error {
	directory, name := filepath.Split(path)
	temporary, err := os.CreateTemp(directory, "."+name+".audit-box-*")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()
	cleanup := func() { os.Remove(temporaryPath) }

	if _, err := temporary.Write(content); err != nil {
		temporary.Close()
		cleanup()
		return err
	}
	if err := temporary.Chmod(mode.Perm()); err != nil {
		temporary.Close()
		cleanup()
		return err
	}
	if writer.Sync {
		if err := temporary.Sync(); err != nil {
			temporary.Close()
			cleanup()
			return err
		}
	}
	if err := temporary.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// ApplyOptions tunes an [Apply] batch. The zero value applies one file
// at a time through a syncing [AtomicWriter].
type ApplyOptions struct {
	// Workers is how many files are processed concurrently. Values
	// below 1 mean 1. Paths in a batch are distinct leaves, so workers
	// never touch the same file.
	Workers int

	// Writer performs step 3 of each file. Nil uses AtomicWriter{Sync: true}.
	Writer FileWriter

	// Logger receives one record per outcome. Nil discards.
	Logger *slog.Logger
}

// Apply commits overlay files into the base. For each path, in sorted
// order:
//
//  1. read the overlay content
//  2. create missing base parent directories
//  3. write the content to the base path, replacing what is there
//  4. read the base file back and compare it byte for byte
//  5. on a match, remove the overlay file (pruning emptied overlay
//     directories) and report Applied; on a mismatch report
//     VerificationFailed and leave both sides as they are
//
// A failure in steps 1 to 3 is reported as ApplyFailed and the overlay
// is untouched. No failure stops the batch. Apply never deletes a base
// file and never removes an overlay file without a successful
// verification.
//
// Symlinks are applied by recreating the link in the base. Directories
// and special files are refused with [ErrUnsupportedEntry].
//
// Outcomes are returned sorted by path, one per distinct input path.
// Cancelling ctx stops scheduling new files; files not yet started are
// reported as ApplyFailed wrapping the context error. A file already in
// progress runs to completion.
func Apply(ctx context.Context, roots Roots, paths []string, options ApplyOptions) []ApplyOutcome {
	sorted := uniqueSorted(paths)
	outcomes := make([]ApplyOutcome, len(sorted))

	writer := options.Writer
	if writer == nil {
		writer = AtomicWriter{Sync: true}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := max(options.Workers, 1)
	workers = min(workers, max(len(sorted), 1))

	applier := &applier{roots: roots, writer: writer}

	indices := make(chan int)
	var wait sync.WaitGroup
	for range workers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			for index := range indices {
				outcomes[index] = applier.applyOne(sorted[index])
			}
		}()
	}

	next := 0
	for next < len(sorted) && ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case indices <- next:
			next++
		}
	}
	close(indices)
	wait.Wait()

	for index := next; index < len(sorted); index++ {
		outcomes[index] = ApplyOutcome{
			Path:   sorted[index],
			Result: ApplyFailed,
			Err:    &PathError{Op: "apply", Path: sorted[index], Err: context.Cause(ctx)},
		}
	}

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			logger.Warn("apply failed", "path", outcome.Path, "result", outcome.Result.String(), "error", outcome.Err)
		} else {
			logger.Debug("applied", "path", outcome.Path, "digest", outcome.Digest.String())
		}
	}
	return outcomes
}

type applier struct {
	roots  Roots
	writer FileWriter
}

func (a *applier) applyOne(relative string) ApplyOutcome {
	outcome := ApplyOutcome{Path: relative, Result: ApplyFailed}
	fail := func(op string, err error) ApplyOutcome {
		outcome.Err = &PathError{Op: op, Path: relative, Err: err}
		return outcome
	}

	clean, err := CleanPath(relative)
	if err != nil || clean == "" || clean != relative {
		if err == nil {
			err = fmt.Errorf("%q is not a clean file path: %w", relative, ErrEscapesRoot)
		}
		return fail("apply", err)
	}
	if err := a.roots.checkOverlayParents(relative); err != nil {
		return fail("apply", err)
	}
	overlayPath, _ := a.roots.OverlayPath(relative)
	basePath, _ := a.roots.BasePath(relative)

	// Step 1: read.
	info, err := os.Lstat(overlayPath)
	if err != nil {
		return fail("read", err)
	}
	var content []byte
	var linkTarget string
	symlink := info.Mode().Type() == fs.ModeSymlink
	switch {
	case symlink:
		linkTarget, err = os.Readlink(overlayPath)
		if err != nil {
			return fail("read", err)
		}
		content = []byte(linkTarget)
	case info.Mode().IsRegular():
		content, err = os.ReadFile(overlayPath)
		if err != nil {
			return fail("read", err)
		}
	default:
		return fail("read", fmt.Errorf("%s: %w", describeMode(info.Mode()), ErrUnsupportedEntry))
	}
	outcome.Digest = binhash.HashBytes(content)

	// Step 2: parents.
	if err := a.ensureBaseParents(relative); err != nil {
		return fail("mkdir", err)
	}

	// Step 3: write.
	if symlink {
		err = replaceWithSymlink(basePath, linkTarget)
	} else {
		err = a.writer.WriteFile(basePath, content, info.Mode())
	}
	if err != nil {
		return fail("write", err)
	}

	// Step 4: verify.
	var written []byte
	if symlink {
		var target string
		target, err = os.Readlink(basePath)
		written = []byte(target)
	} else {
		written, err = readRegular(basePath)
	}
	if err != nil || !bytes.Equal(written, content) {
		outcome.Result = VerificationFailed
		cause := ErrVerificationFailed
		if err != nil {
			cause = fmt.Errorf("%w: re-reading base: %v", ErrVerificationFailed, err)
		}
		outcome.Err = &PathError{Op: "verify", Path: relative, Err: cause}
		return outcome
	}

	// Step 5: remove the overlay copy.
	if err := os.Remove(overlayPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail("remove", err)
	}
	a.roots.pruneEmptyOverlayParents(relative)

	outcome.Result = Applied
	return outcome
}

// ensureBaseParents creates each missing directory between the base
// root and relative, copying permission bits from the matching overlay
// directory when it exists.
func (a *applier) ensureBaseParents(relative string) error {
	parent := parentPath(relative)
	if parent == "" {
		return nil
	}
	current := ""
	for _, component := range strings.Split(parent, "/") {
		current = joinPath(current, component)
		basePath := filepath.Join(a.roots.Base, filepath.FromSlash(current))
		info, err := os.Stat(basePath)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("base %s exists and is not a directory", current)
			}
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		mode := fs.FileMode(0o755)
		overlayInfo, err := os.Stat(filepath.Join(a.roots.Overlay, filepath.FromSlash(current)))
		if err == nil && overlayInfo.IsDir() {
			mode = overlayInfo.Mode().Perm()
		}
		if err := os.Mkdir(basePath, mode); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// replaceWithSymlink creates a link beside path and renames it into
// place.
func replaceWithSymlink(path, target string) error {
	directory, name := filepath.Split(path)
	temporary, err := os.MkdirTemp(directory, "."+name+".audit-box-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(temporary)

	link := filepath.Join(temporary, name)
	if err := os.Symlink(target, link); err != nil {
		return err
	}
	return os.Rename(link, path)
}

// readRegular reads path, refusing anything that is not a regular file
// so a directory or link at the base path fails verification.
func readRegular(path string) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is a %s", path, describeMode(info.Mode()))
	}
	return os.ReadFile(path)
}

// uniqueSorted returns paths sorted with duplicates removed.
func uniqueSorted(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return slices.Compact(sorted)
}
