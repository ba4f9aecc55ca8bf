// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/reviewui"
	"github.com/bureau-foundation/auditbox/overlay"
)

type reviewParams struct {
	configFlag
	Roots   rootsFlags `json:"-"`
	NoWatch bool       `json:"no_watch" flag:"no-watch" desc:"do not rescan when the overlay changes"`
}

func reviewCommand() *cli.Command {
	var params reviewParams

	return &cli.Command{
		Name:    "review",
		Summary: "Review and apply overlay changes interactively",
		Description: `Open a terminal browser over the overlay: a tree of changed files on
the left and the diff of the entry under the cursor on the right.

Select files with space ('A' toggles everything), apply the selection
with 'a', and discard with 'd'. Both ask for confirmation. '/' filters
the tree by fuzzy match and '?' lists every key.

While review is open, the overlay is watched: if a sandbox is still
running, its new writes appear and are briefly highlighted.`,
		Usage: "audit-box review [flags]",
		Examples: []cli.Example{
			{
				Description: "Review the current session",
				Command:     "audit-box review",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if !cli.IsTerminal() {
				return cli.Validation("review needs a terminal").
					WithHint("use 'audit-box status', 'diff', and 'apply' from scripts")
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			env, err := params.Roots.resolve(cfg)
			if err != nil {
				return err
			}

			// Records would corrupt the alternate screen; route them
			// to the status bar instead.
			handler := reviewui.NewTUILogHandler(slog.LevelInfo)
			uiLogger := slog.New(handler)

			var changes <-chan struct{}
			if cfg.Review.Watch && !params.NoWatch {
				watcher, err := overlay.NewWatcher(env.roots.Overlay, overlay.WatcherOptions{Logger: uiLogger})
				if err != nil {
					logger.Warn("overlay will not be watched", "error", err)
				} else {
					defer watcher.Close()
					changes = watcher.Changes()
				}
			}

			model := reviewui.NewModel(ctx, reviewui.Options{
				Roots:          env.roots,
				Scan:           env.scanOptions(uiLogger),
				Diff:           env.diffOptions(),
				Workers:        cfg.Apply.Workers,
				Writer:         overlay.AtomicWriter{Sync: cfg.Apply.Fsync},
				Journal:        env.journal(),
				Changes:        changes,
				HighlightStyle: cfg.Review.HighlightStyle,
				Clock:          clock.Real(),
				Logger:         uiLogger,
			})

			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			handler.SetProgram(program)
			if _, err := program.Run(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return cli.Internal("review: %w", err)
			}
			fmt.Println()
			return nil
		},
	}
}
