// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/lib/version"
)

type versionParams struct {
	cli.JSONOutput
}

func versionCommand() *cli.Command {
	var params versionParams

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Usage:   "audit-box version [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
			build, err := version.Current()
			if err != nil {
				// The binary digest is informational.
				logger.Debug("hashing own binary failed", "error", err)
			}
			if done, err := params.EmitJSON(build); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "audit-box %s\n", version.Full())
			if build.Binary != "" {
				fmt.Fprintf(cli.Stdout, "  Binary: %s\n", build.Binary)
			}
			if build.Digest != "" {
				fmt.Fprintf(cli.Stdout, "  Digest: %s\n", build.Digest)
			}
			return nil
		},
	}
}
