// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/sandbox"
)

type runParams struct {
	configFlag
	DryRun bool `json:"dry_run" flag:"dry-run" desc:"print the bwrap command instead of running it"`
	Check  bool `json:"check"   flag:"check"   desc:"check bwrap, user namespaces, and the session directories, then exit"`
}

func runCommand() *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Run a command in the sandbox over the current session",
		Description: `Run a command under bubblewrap with the session's base mounted
through its overlay: the command sees the base as usual, but every
write lands in the overlay, where it waits for review.

The host root is read-only inside the sandbox and /tmp is private.
With no command, the configured shell (sandbox.shell) is started.
The exit status of the sandboxed command becomes audit-box's.`,
		Usage: "audit-box run [flags] [-- COMMAND [ARGS...]]",
		Examples: []cli.Example{
			{
				Description: "Open a shell in the sandbox",
				Command:     "audit-box run",
			},
			{
				Description: "Run a build and see what it wrote",
				Command:     "audit-box run -- make install && audit-box status",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := params.load()
			if err != nil {
				return err
			}
			active, err := loadSession(cfg)
			if err != nil {
				return err
			}

			command := args
			if len(command) == 0 {
				command = []string{cfg.Sandbox.Shell}
			}
			options := &sandbox.Options{
				Base:      active.Base,
				Upper:     active.Overlay,
				Work:      active.Work,
				ExtraArgs: cfg.Sandbox.ExtraArgs,
				Command:   command,
			}

			if params.DryRun {
				bwrapArgs, err := sandbox.NewBwrapBuilder().Build(options)
				if err != nil {
					return cli.Internal("building bwrap command: %w", err)
				}
				fmt.Fprintln(cli.Stdout, sandbox.FormatCommand(cfg.Sandbox.Bwrap, bwrapArgs))
				return nil
			}

			bwrapPath, err := cfg.BwrapPath()
			if err != nil {
				return cli.NotFound("%w", err)
			}

			validator := sandbox.NewValidator()
			validator.ValidateAll(bwrapPath, options)
			if params.Check {
				validator.PrintResults(cli.Stdout)
				if validator.HasErrors() {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}
			if validator.HasErrors() {
				validator.PrintResults(os.Stderr)
				return &cli.ExitError{Code: 1}
			}

			cmd, err := sandbox.Command(ctx, bwrapPath, options)
			if err != nil {
				return cli.Internal("%w", err)
			}
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr

			logger.Debug("starting sandbox", "bwrap", bwrapPath, "base", active.Base, "overlay", active.Overlay, "command", command)
			err = cmd.Run()
			var exitError *exec.ExitError
			if errors.As(err, &exitError) {
				logger.Debug("sandbox exited", "code", exitError.ExitCode())
				if code := exitError.ExitCode(); code > 0 {
					return &cli.ExitError{Code: code}
				}
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return cli.Internal("running bwrap: %w", err)
			}
			return nil
		},
	}
}
