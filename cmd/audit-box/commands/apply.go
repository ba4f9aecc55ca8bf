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

type applyParams struct {
	configFlag
	cli.JSONOutput
	Roots   rootsFlags `json:"-"`
	All     bool       `json:"all"     flag:"all"       desc:"apply every changed file"`
	Yes     bool       `json:"yes"     flag:"yes,y"     desc:"do not ask for confirmation"`
	Workers int        `json:"workers" flag:"workers"   desc:"files copied concurrently (default apply.workers)"`
}

type applyEntry struct {
	Path   string              `json:"path"`
	Result overlay.ApplyResult `json:"result"`
	Digest string              `json:"digest,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func applyCommand() *cli.Command {
	var params applyParams

	return &cli.Command{
		Name:    "apply",
		Summary: "Copy selected overlay files into the base",
		Description: `Write overlay files into the base. A directory argument selects every
changed file beneath it; --all selects everything.

Each file is written atomically, read back, and compared with the
overlay copy. Only after the comparison succeeds is the overlay copy
removed. A failed file never stops the batch, and audit-box never
deletes anything from the base: deletions made in the sandbox are not
applied.

Exits 1 if any file was not applied.`,
		Usage: "audit-box apply [flags] PATH...",
		Examples: []cli.Example{
			{
				Description: "Apply one directory after reviewing it",
				Command:     "audit-box apply src/",
			},
			{
				Description: "Apply everything without prompting",
				Command:     "audit-box apply --all --yes",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.Workers < 0 {
				return cli.Validation("--workers must not be negative")
			}
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
			if tree.Empty() {
				fmt.Fprintln(os.Stderr, "No changes in the overlay.")
				return nil
			}

			paths, unsupported, err := selectPaths(tree, args, params.All)
			if err != nil {
				return err
			}
			if len(unsupported) > 0 {
				fmt.Fprint(os.Stderr, listPaths("Skipping special files (discard them instead):", unsupported))
			}
			if len(paths) == 0 {
				return cli.Validation("nothing to apply")
			}

			fmt.Fprint(os.Stderr, listPaths(fmt.Sprintf("Apply %d %s to %s:", len(paths), plural(len(paths), "file", "files"), env.roots.Base), paths))
			confirmed, err := cli.ConfirmOrYes(params.Yes, "Write these files into the base?")
			if err != nil {
				return cli.Internal("%w", err)
			}
			if !confirmed {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return &cli.ExitError{Code: 1}
			}

			workers := params.Workers
			if workers == 0 {
				workers = cfg.Apply.Workers
			}
			outcomes := overlay.Apply(ctx, env.roots, paths, overlay.ApplyOptions{
				Workers: workers,
				Writer:  overlay.AtomicWriter{Sync: cfg.Apply.Fsync},
				Logger:  logger,
			})
			if journal := env.journal(); journal != nil {
				if err := journal.RecordApply(outcomes); err != nil {
					logger.Warn("journal write failed", "path", journal.Path(), "error", err)
				}
			}

			entries := make([]applyEntry, 0, len(outcomes))
			failures := 0
			for _, outcome := range outcomes {
				entry := applyEntry{Path: outcome.Path, Result: outcome.Result}
				if !outcome.Digest.IsZero() {
					entry.Digest = outcome.Digest.String()
				}
				if outcome.Err != nil {
					entry.Error = outcome.Err.Error()
				}
				if outcome.Result != overlay.Applied {
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
					detail := entry.Error
					if detail == "" {
						detail = entry.Digest
					}
					fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Path, entry.Result, detail)
				}
				writer.Flush()
			}

			if failures > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d %s not applied; the overlay copies were kept\n",
					failures, len(outcomes), plural(len(outcomes), "file", "files"))
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
