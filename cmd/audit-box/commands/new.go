// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/sandbox"
	"github.com/bureau-foundation/auditbox/session"
)

type newParams struct {
	configFlag
	cli.JSONOutput
	Base string `json:"base" flag:"base" desc:"directory the sandbox will see through the overlay" default:"."`
}

type newResult struct {
	Directory string   `json:"directory"`
	Overlay   string   `json:"overlay"`
	Work      string   `json:"work"`
	Base      string   `json:"base"`
	Command   []string `json:"command"`
}

func newCommand() *cli.Command {
	var params newParams

	return &cli.Command{
		Name:    "new",
		Summary: "Start a session: create overlay directories over a base",
		Description: `Create a fresh session over a base directory: a private temporary
directory holding the overlay upper layer and the overlayfs work
directory. The session is recorded so later commands find it without
flags, replacing any previous record (the previous session's files are
left in place).

Prints the bubblewrap command that runs a shell with the base mounted
through the overlay. 'audit-box run' executes it for you.`,
		Usage: "audit-box new [flags]",
		Examples: []cli.Example{
			{
				Description: "Audit what a build does to the current project",
				Command:     "audit-box new --base .",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			if err := cfg.EnsurePaths(); err != nil {
				return cli.Internal("%w", err)
			}

			created, err := session.Create(cfg, params.Base, clock.Real())
			if err != nil {
				return cli.Validation("%w", err)
			}
			logger.Debug("session created", "directory", created.Directory, "base", created.Base)

			options := &sandbox.Options{
				Base:      created.Base,
				Upper:     created.Overlay,
				Work:      created.Work,
				ExtraArgs: cfg.Sandbox.ExtraArgs,
				Command:   []string{cfg.Sandbox.Shell},
			}
			args, err = sandbox.NewBwrapBuilder().Build(options)
			if err != nil {
				return cli.Internal("building bwrap command: %w", err)
			}

			result := newResult{
				Directory: created.Directory,
				Overlay:   created.Overlay,
				Work:      created.Work,
				Base:      created.Base,
				Command:   append([]string{cfg.Sandbox.Bwrap}, args...),
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Fprintf(cli.Stdout, "Session:  %s\n", created.Directory)
			fmt.Fprintf(cli.Stdout, "Base:     %s\n", created.Base)
			fmt.Fprintf(cli.Stdout, "Overlay:  %s\n\n", created.Overlay)
			fmt.Fprintf(cli.Stdout, "Run the sandbox with 'audit-box run', or directly:\n\n%s\n",
				sandbox.FormatCommand(cfg.Sandbox.Bwrap, args))
			fmt.Fprintf(os.Stderr, "\nWhen it exits, review with 'audit-box review' or 'audit-box status'.\n")
			return nil
		},
	}
}
