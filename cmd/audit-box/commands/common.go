// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/journal"
	"github.com/bureau-foundation/auditbox/lib/binhash"
	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/config"
	"github.com/bureau-foundation/auditbox/overlay"
	"github.com/bureau-foundation/auditbox/session"
)

// configFlag selects the configuration file. Every command that reads
// configuration embeds it.
type configFlag struct {
	ConfigPath string `json:"-" flag:"config" desc:"configuration file (default $AUDITBOX_CONFIG, else built-in defaults)"`
}

func (flag configFlag) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flag.ConfigPath != "" {
		cfg, err = config.LoadFile(flag.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}

// rootsFlags lets a command work on an explicit overlay and base
// instead of the saved session. Both must be given, or neither.
type rootsFlags struct {
	overlay string
	base    string
}

// AddFlags implements [cli.FlagBinder].
func (flags *rootsFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.overlay, "overlay", "", "overlay upper directory (instead of the session; requires --base)")
	flagSet.StringVar(&flags.base, "base", "", "base directory (instead of the session; requires --overlay)")
}

// environment is what a command operates on: the configuration, the
// roots, and the session they came from (nil for explicit roots).
type environment struct {
	config  *config.Config
	session *session.Session
	roots   overlay.Roots
}

// resolve picks the roots from the flags or the saved session.
func (flags rootsFlags) resolve(cfg *config.Config) (*environment, error) {
	switch {
	case flags.overlay != "" && flags.base != "":
		overlayRoot, err := filepath.Abs(flags.overlay)
		if err != nil {
			return nil, cli.Validation("--overlay: %w", err)
		}
		baseRoot, err := filepath.Abs(flags.base)
		if err != nil {
			return nil, cli.Validation("--base: %w", err)
		}
		roots := overlay.Roots{Overlay: overlayRoot, Base: baseRoot}
		if err := roots.Validate(); err != nil {
			return nil, cli.Validation("%w", err)
		}
		return &environment{config: cfg, roots: roots}, nil

	case flags.overlay != "" || flags.base != "":
		return nil, cli.Validation("--overlay and --base must be given together")
	}

	active, err := loadSession(cfg)
	if err != nil {
		return nil, err
	}
	return &environment{config: cfg, session: active, roots: active.Roots()}, nil
}

// loadSession loads the saved session, translating its sentinel errors
// into categorized command errors.
func loadSession(cfg *config.Config) (*session.Session, error) {
	active, err := session.Load(session.FilePath(cfg))
	switch {
	case err == nil:
		return active, nil
	case errors.Is(err, session.ErrNoSession):
		return nil, cli.NotFound("%w", err).
			WithHint("start one with 'audit-box new --base DIR', or pass --overlay and --base")
	case errors.Is(err, session.ErrStaleSession):
		return nil, cli.NotFound("%w", err).
			WithHint("the stale record was removed; start a new session with 'audit-box new'")
	default:
		return nil, cli.Internal("%w", err)
	}
}

// journal returns the session journal, or nil when journaling is off or
// the roots were given explicitly.
func (env *environment) journal() *journal.Journal {
	if env.session == nil || !env.config.Apply.Journal {
		return nil
	}
	return journal.Open(env.session.JournalPath(), clock.Real())
}

func (env *environment) scanOptions(logger *slog.Logger) overlay.ScanOptions {
	return overlay.ScanOptions{Exclude: env.config.Scan.Exclude, Logger: logger}
}

func (env *environment) diffOptions() overlay.DiffOptions {
	return overlay.DiffOptions{ContextLines: env.config.Diff.ContextLines, MaxBytes: env.config.Diff.MaxBytes}
}

// scan scans the roots and logs every warning.
func (env *environment) scan(ctx context.Context, logger *slog.Logger) (*overlay.Tree, *overlay.ScanReport, error) {
	tree, report, err := overlay.Scan(ctx, env.roots, env.scanOptions(logger))
	if err != nil {
		if errors.Is(err, overlay.ErrInvalidRoot) {
			return nil, nil, cli.Validation("%w", err)
		}
		return nil, nil, cli.Internal("scanning overlay: %w", err)
	}
	for _, warning := range report.Warnings {
		logger.Warn("part of the overlay could not be scanned", "path", warning.Path, "kind", warning.Kind.String(), "error", warning.Err)
	}
	if !env.config.Scan.FollowWhiteouts {
		report.Whiteouts = nil
	}
	return tree, report, nil
}

// selectPaths resolves command-line paths against tree using the
// selection model: a directory selects every file beneath it. With
// all set, every file is selected and args must be empty. Unsupported
// entries are returned separately; they can be discarded but not
// applied.
func selectPaths(tree *overlay.Tree, args []string, all bool) (selected, unsupported []string, err error) {
	switch {
	case all && len(args) > 0:
		return nil, nil, cli.Validation("--all cannot be combined with paths")
	case all:
		tree.SelectAll()
	case len(args) == 0:
		return nil, nil, cli.Validation("no paths given (pass paths, or --all)")
	}

	for _, arg := range args {
		relative, err := overlay.CleanPath(arg)
		if err != nil {
			return nil, nil, cli.Validation("%s: %w", arg, err)
		}
		if err := tree.SelectAllUnder(relative); err != nil {
			return nil, nil, cli.NotFound("%s is not a changed path in the overlay", arg).
				WithHint("'audit-box status' lists the changed paths")
		}
	}

	for _, path := range tree.SelectedLeaves() {
		node, _ := tree.Lookup(path)
		if node.Status == overlay.StatusUnsupported {
			unsupported = append(unsupported, path)
			continue
		}
		selected = append(selected, path)
	}
	return selected, unsupported, nil
}

// entryDigest hashes what Apply would commit for node: file content,
// or the target of a symbolic link.
func entryDigest(roots overlay.Roots, node overlay.Node) (string, error) {
	path, err := roots.OverlayPath(node.Path)
	if err != nil {
		return "", err
	}
	if node.Symlink {
		target, err := os.Readlink(path)
		if err != nil {
			return "", err
		}
		return binhash.HashBytes([]byte(target)).String(), nil
	}
	if node.Mode.Type()&fs.ModeType != 0 {
		return "", nil
	}
	digest, err := binhash.HashFile(path)
	if err != nil {
		return "", err
	}
	return digest.String(), nil
}

// listPaths prints paths indented under a heading, eliding the middle
// of long lists.
func listPaths(heading string, paths []string) string {
	const limit = 20
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s\n", heading)
	for index, path := range paths {
		if index == limit && len(paths) > limit+1 {
			fmt.Fprintf(&builder, "  … and %d more\n", len(paths)-limit)
			break
		}
		fmt.Fprintf(&builder, "  %s\n", path)
	}
	return builder.String()
}

func plural(count int, one, many string) string {
	if count == 1 {
		return one
	}
	return many
}
