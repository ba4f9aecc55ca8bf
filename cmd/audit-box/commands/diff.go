// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/lib/tui"
	"github.com/bureau-foundation/auditbox/overlay"
)

type diffParams struct {
	configFlag
	cli.JSONOutput
	Roots rootsFlags `json:"-"`
	Color string     `json:"color" flag:"color" desc:"colorize output: auto, always, or never" default:"auto"`
}

func diffCommand() *cli.Command {
	var params diffParams

	return &cli.Command{
		Name:    "diff",
		Summary: "Show how one overlay file differs from the base",
		Description: `Print a unified diff of one changed file against the base. New
files diff against an empty file. Binary files and files larger than
diff.max_bytes print a one-line summary instead of content.

Symbolic links compare their targets. A mode change on a file whose
content is unchanged is shown as a header line.`,
		Usage: "audit-box diff [flags] PATH",
		Examples: []cli.Example{
			{
				Description: "Review a changed configuration file",
				Command:     "audit-box diff etc/app.conf",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("diff takes exactly one PATH (got %d)", len(args))
			}
			switch params.Color {
			case "auto", "always", "never":
			default:
				return cli.Validation("--color must be auto, always, or never (got %q)", params.Color)
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			env, err := params.Roots.resolve(cfg)
			if err != nil {
				return err
			}
			relative, err := overlay.CleanPath(args[0])
			if err != nil {
				return cli.Validation("%s: %w", args[0], err)
			}
			tree, _, err := env.scan(ctx, logger)
			if err != nil {
				return err
			}

			result, err := overlay.RenderPath(tree, env.roots, relative, env.diffOptions())
			switch {
			case errors.Is(err, overlay.ErrUnknownPath):
				return cli.NotFound("%s is not a changed path in the overlay", args[0]).
					WithHint("'audit-box status' lists the changed paths")
			case errors.Is(err, overlay.ErrNotRenderable):
				return cli.Validation("%w", err)
			case err != nil:
				return cli.Internal("%w", err)
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			if params.Color == "never" || (params.Color == "auto" && !cli.IsTerminal()) {
				fmt.Fprint(cli.Stdout, result.String())
				return nil
			}
			printColoredDiff(result, params.Color == "always")
			return nil
		},
	}
}

// printColoredDiff writes result with each line in its theme color.
// force colors output even when stdout is not a terminal.
func printColoredDiff(result *overlay.DiffResult, force bool) {
	renderer := lipgloss.NewRenderer(cli.Stdout)
	if force {
		renderer.SetColorProfile(termenv.ANSI256)
	}
	theme := tui.DefaultTheme
	for _, line := range result.Lines {
		style := renderer.NewStyle().Foreground(theme.LineColor(line))
		fmt.Fprintln(cli.Stdout, style.Render(line.Kind.Prefix()+line.Text))
	}
}
