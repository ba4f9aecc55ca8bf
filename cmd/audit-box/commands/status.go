// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/auditbox/cmd/audit-box/cli"
	"github.com/bureau-foundation/auditbox/overlay"
)

type statusParams struct {
	configFlag
	cli.JSONOutput
	Roots   rootsFlags `json:"-"`
	Digests bool       `json:"digests" flag:"digests" desc:"include the content digest of each changed file"`
}

type statusEntry struct {
	Path    string         `json:"path"`
	Kind    overlay.Kind   `json:"kind"`
	Status  overlay.Status `json:"status"`
	Symlink bool           `json:"symlink,omitempty"`
	Size    int64          `json:"size"`
	Digest  string         `json:"digest,omitempty"`
}

type statusWarning struct {
	Path  string              `json:"path"`
	Kind  overlay.WarningKind `json:"kind"`
	Error string              `json:"error"`
}

type statusResult struct {
	Overlay   string             `json:"overlay"`
	Base      string             `json:"base"`
	Entries   []statusEntry      `json:"entries"`
	Warnings  []statusWarning    `json:"warnings"`
	Whiteouts []overlay.Whiteout `json:"whiteouts"`
	Identical int                `json:"identical"`
	Examined  int                `json:"examined"`
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "List the files the sandbox added or changed",
		Description: `Scan the overlay and list every entry that differs from the base,
as a tree. Each file carries a marker:

  N  new: nothing exists at that path in the base
  M  modified: the base holds different content
  ?  unsupported: a device, socket, or FIFO (discard only)

Files whose content matches the base are not listed. Deletions made
in the sandbox are listed separately; audit-box never applies them.`,
		Usage: "audit-box status [flags]",
		Examples: []cli.Example{
			{
				Description: "Show changes in the current session",
				Command:     "audit-box status",
			},
			{
				Description: "Compare an arbitrary upper directory against a base",
				Command:     "audit-box status --overlay /tmp/upper --base ~/src/project",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			env, err := params.Roots.resolve(cfg)
			if err != nil {
				return err
			}
			tree, report, err := env.scan(ctx, logger)
			if err != nil {
				return err
			}

			result := statusResult{
				Overlay:   env.roots.Overlay,
				Base:      env.roots.Base,
				Whiteouts: report.Whiteouts,
				Identical: report.Identical,
				Examined:  report.Examined,
			}
			var failed error
			tree.Walk(func(node overlay.Node) bool {
				entry := statusEntry{
					Path:    node.Path,
					Kind:    node.Kind,
					Status:  node.Status,
					Symlink: node.Symlink,
					Size:    node.Size,
				}
				if params.Digests && !node.IsDir() {
					digest, hashErr := entryDigest(env.roots, node)
					if hashErr != nil && failed == nil {
						failed = fmt.Errorf("hashing %s: %w", node.Path, hashErr)
					}
					entry.Digest = digest
				}
				result.Entries = append(result.Entries, entry)
				return true
			})
			if failed != nil {
				return cli.Internal("%w", failed)
			}
			for _, warning := range report.Warnings {
				result.Warnings = append(result.Warnings, statusWarning{
					Path:  warning.Path,
					Kind:  warning.Kind,
					Error: warning.Err.Error(),
				})
			}

			if done, err := params.EmitJSON(result); done {
				return err
			}
			printStatus(tree, result)
			return nil
		},
	}
}

func printStatus(tree *overlay.Tree, result statusResult) {
	if tree.Empty() {
		fmt.Fprintln(cli.Stdout, "No changes in the overlay.")
	} else {
		digests := make(map[string]string, len(result.Entries))
		for _, entry := range result.Entries {
			digests[entry.Path] = entry.Digest
		}

		var added, modified, unsupported int
		tree.Walk(func(node overlay.Node) bool {
			marker := " "
			switch node.Status {
			case overlay.StatusNew:
				added++
				marker = node.Status.Marker()
			case overlay.StatusModified:
				modified++
				marker = node.Status.Marker()
			case overlay.StatusUnsupported:
				unsupported++
				marker = node.Status.Marker()
			}
			name := node.Name
			switch {
			case node.IsDir():
				name += "/"
			case node.Symlink:
				name += "@"
			}
			line := fmt.Sprintf("%s %s%s", marker, strings.Repeat("  ", node.Depth-1), name)
			if digest := digests[node.Path]; digest != "" {
				line += "  " + digest
			}
			fmt.Fprintln(cli.Stdout, line)
			return true
		})

		fmt.Fprintf(cli.Stdout, "\n%d new, %d modified", added, modified)
		if unsupported > 0 {
			fmt.Fprintf(cli.Stdout, ", %d unsupported", unsupported)
		}
		fmt.Fprintf(cli.Stdout, " (%d identical to base)\n", result.Identical)
	}

	if len(result.Whiteouts) > 0 {
		fmt.Fprintf(cli.Stdout, "\nDeleted in the sandbox (not applied):\n")
		for _, whiteout := range result.Whiteouts {
			if whiteout.Opaque {
				fmt.Fprintf(cli.Stdout, "  %s/ (contents replaced)\n", whiteout.Path)
				continue
			}
			fmt.Fprintf(cli.Stdout, "  %s\n", whiteout.Path)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(cli.Stdout, "\n%d %s could not be scanned; run with --debug for details\n",
			len(result.Warnings), plural(len(result.Warnings), "path", "paths"))
	}
}
