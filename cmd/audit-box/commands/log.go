// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/journal"
)

type logParams struct {
	configFlag
	cli.JSONOutput
}

func logCommand() *cli.Command {
	var params logParams

	return &cli.Command{
		Name:    "log",
		Summary: "Show what was applied and discarded in this session",
		Description: `Print the session journal: one line per file that apply or discard
touched, including the ones that failed. Applied files carry the
digest of the content that was written.

Journaling is on by default (apply.journal in the configuration) and
only covers commands run against the saved session.`,
		Usage:  "audit-box log [flags]",
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
			records, err := journal.ReadAll(active.JournalPath())
			switch {
			case errors.Is(err, journal.ErrTornRecord):
				// The last batch was interrupted; what came before is intact.
				logger.Warn("journal is truncated", "error", err)
			case err != nil:
				return cli.Internal("%w", err)
			}

			if done, err := params.EmitJSON(records); done {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cli.Stdout, "Nothing applied or discarded yet.")
				return nil
			}
			writer := tabwriter.NewWriter(cli.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "TIME\tOPERATION\tPATH\tRESULT\tDETAIL\n")
			for _, record := range records {
				detail := record.Error
				if detail == "" {
					detail = record.Digest
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					record.Time.Local().Format(time.DateTime), record.Operation, record.Path, record.Result, detail)
			}
			return writer.Flush()
		},
	}
}
