// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/overlay"
)

type discardParams struct {
	configFlag
	cli.JSONOutput
	Roots rootsFlags `json:"-"`
	All   bool       `json:"all" flag:"all"   desc:"discard every changed entry"`
	Yes   bool       `json:"yes" flag:"yes,y" desc:"do not ask for confirmation"`
}

type discardEntry struct {
	Path   string                `json:"path"`
	Result overlay.DiscardResult `json:"result"`
	Error  string                `json:"error,omitempty"`
}

func discardCommand() *cli.Command {
	var params discardParams

	return &cli.Command{
		Name:    "discard",
		Summary: "Delete entries from the overlay without applying them",
		Description: `Remove files or whole directories from the overlay. The base is
never touched. Discarding is permanent: there is no trash and no undo.

Special files (devices, sockets, FIFOs) cannot be applied, but they
can be discarded.

Exits 1 if any entry could not be removed.`,
		Usage: "audit-box discard [flags] PATH...",
		Examples: []cli.Example{
			{
				Description: "Throw away build output the sandbox left behind",
				Command:     "audit-box discard build/ .cache/",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := params.load()
			if err != nil {
				return err
			}
			env, err := params.Roots.resolve(cfg)
			if err != nil {
				return err
			}
			tree, _, err := env.scan(ctx, logger)
			if err != nil {
				return err
			}

			var paths []string
			switch {
			case params.All && len(args) > 0:
				return cli.Validation("--all cannot be combined with paths")
			case params.All:
				paths = tree.Leaves()
			case len(args) == 0:
				return cli.Validation("no paths given (pass paths, or --all)")
			}
			for _, arg := range args {
				relative, err := overlay.CleanPath(arg)
				if err != nil {
					return cli.Validation("%s: %w", arg, err)
				}
				if relative == "" {
					return cli.Validation("refusing to discard the overlay root").
						WithHint("use --all to discard every changed entry")
				}
				if _, ok := tree.Lookup(relative); !ok {
					return cli.NotFound("%s is not a changed path in the overlay", arg).
						WithHint("'audit-box status' lists the changed paths")
				}
				paths = append(paths, relative)
			}
			if len(paths) == 0 {
				fmt.Fprintln(os.Stderr, "No changes in the overlay.")
				return nil
			}

			fmt.Fprint(os.Stderr, listPaths(fmt.Sprintf("Permanently delete %d %s from %s:",
				len(paths), plural(len(paths), "entry", "entries"), env.roots.Overlay), paths))
			confirmed, err := cli.ConfirmOrYes(params.Yes, "This cannot be undone. Continue?")
			if err != nil {
				return cli.Internal("%w", err)
			}
			if !confirmed {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return &cli.ExitError{Code: 1}
			}

			outcomes := overlay.Discard(ctx, env.roots, paths)
			if journal := env.journal(); journal != nil {
				if err := journal.RecordDiscard(outcomes); err != nil {
					logger.Warn("journal write failed", "path", journal.Path(), "error", err)
				}
			}

			entries := make([]discardEntry, 0, len(outcomes))
			failures := 0
			for _, outcome := range outcomes {
				entry := discardEntry{Path: outcome.Path, Result: outcome.Result}
				if outcome.Err != nil {
					entry.Error = outcome.Err.Error()
					failures++
				}
				entries = append(entries, entry)
			}

			if done, err := params.EmitJSON(entries); done {
				if err != nil {
					return err
				}
			} else {
				writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
				fmt.Fprintf(writer, "PATH\tRESULT\tDETAIL\n")
				for _, entry := range entries {
					fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Path, entry.Result, entry.Error)
				}
				writer.Flush()
			}

			if failures > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
