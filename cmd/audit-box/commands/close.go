// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/session"
)

type closeParams struct {
	configFlag
	Yes bool `json:"yes" flag:"yes,y" desc:"do not ask for confirmation"`
}

func closeCommand() *cli.Command {
	var params closeParams

	return &cli.Command{
		Name:    "close",
		Summary: "End the session and delete its overlay",
		Description: `Delete the session directory, including the overlay and anything
still unapplied in it, and forget the session. The base is not
touched.`,
		Usage:  "audit-box close [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			active, err := loadSession(cfg)
			if err != nil {
				return err
			}

			prompt := fmt.Sprintf("Delete %s and everything left in its overlay?", active.Directory)
			confirmed, err := cli.ConfirmOrYes(params.Yes, prompt)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if !confirmed {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return &cli.ExitError{Code: 1}
			}

			if err := session.Remove(active); err != nil {
				return cli.Internal("%w", err)
			}
			if err := session.Clear(session.FilePath(cfg)); err != nil {
				return cli.Internal("%w", err)
			}
			logger.Debug("session closed", "directory", active.Directory)
			fmt.Fprintf(cli.Stdout, "Closed session %s\n", active.Directory)
			return nil
		},
	}
}
