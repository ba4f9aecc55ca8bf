// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands implements the audit-box subcommands.
package commands

import "github.com/bureau-foundation/auditbox/cmd/audit-box/cli"

// Root returns the top-level audit-box command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "audit-box",
		Summary: "Run untrusted commands against an overlay and review what they wrote",
		Description: `audit-box runs a command in a bubblewrap sandbox where a directory is
mounted through overlayfs. Everything the command writes lands in the
overlay instead of the real directory. Afterwards you review the
changes file by file and copy only the ones you accept into the real
directory (the base), or throw them away.

Configuration is read from $AUDITBOX_CONFIG when set. Set
AUDITBOX_DEBUG=1 or pass --debug for verbose logs.`,
		Examples: []cli.Example{
			{
				Description: "Try an install script without trusting it",
				Command:     "audit-box new --base . && audit-box run -- ./install.sh && audit-box review",
			},
		},
		Subcommands: []*cli.Command{
			newCommand(),
			runCommand(),
			statusCommand(),
			diffCommand(),
			reviewCommand(),
			applyCommand(),
			discardCommand(),
			logCommand(),
			closeCommand(),
			versionCommand(),
		},
	}
}
