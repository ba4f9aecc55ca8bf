// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Options describes one sandboxed run over an overlay session.
type Options struct {
	// Base is the directory the sandbox sees, read-only underneath the
	// overlay. It is also the working directory inside the sandbox.
	Base string

	// Upper is the overlay upper layer. Every write the sandboxed
	// process makes under Base lands here.
	Upper string

	// Work is overlayfs scratch space on the same filesystem as Upper.
	Work string

	// ExtraArgs are passed to bwrap after the standard arguments and
	// before the command.
	ExtraArgs []string

	// Command is the program to run and its arguments.
	Command []string
}

// BwrapBuilder builds bubblewrap command-line arguments.
type BwrapBuilder struct {
	args []string
}

// NewBwrapBuilder creates a new builder.
func NewBwrapBuilder() *BwrapBuilder {
	return &BwrapBuilder{}
}

// Build constructs the bwrap arguments (without the bwrap binary
// itself). The host root is bound read-only, /tmp is a private tmpfs,
// and Base is replaced by an overlay whose upper layer is Upper:
//
//	--ro-bind / / --tmpfs /tmp --unshare-pid --dev /dev
//	--overlay-src BASE --overlay UPPER WORK BASE --chdir BASE
//	--new-session --die-with-parent [extra...] -- COMMAND...
func (b *BwrapBuilder) Build(opts *Options) ([]string, error) {
	var missing []error
	if opts.Base == "" {
		missing = append(missing, errors.New("base is required"))
	}
	if opts.Upper == "" {
		missing = append(missing, errors.New("overlay upper directory is required"))
	}
	if opts.Work == "" {
		missing = append(missing, errors.New("overlay work directory is required"))
	}
	if len(opts.Command) == 0 {
		missing = append(missing, errors.New("command is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	b.args = []string{}

	// Host filesystem, read-only.
	b.args = append(b.args, "--ro-bind", "/", "/")
	b.args = append(b.args, "--tmpfs", "/tmp")

	b.args = append(b.args, "--unshare-pid")
	b.args = append(b.args, "--dev", "/dev")

	// The audited tree: reads fall through to Base, writes go to Upper.
	b.args = append(b.args, "--overlay-src", opts.Base)
	b.args = append(b.args, "--overlay", opts.Upper, opts.Work, opts.Base)
	b.args = append(b.args, "--chdir", opts.Base)

	b.args = append(b.args, "--new-session")
	b.args = append(b.args, "--die-with-parent")
	// Note: --cap-drop ALL and PR_SET_NO_NEW_PRIVS are always set by bwrap.

	b.args = append(b.args, opts.ExtraArgs...)

	b.args = append(b.args, "--")
	b.args = append(b.args, opts.Command...)
	return b.args, nil
}

// Command returns an unstarted bwrap command for opts. The caller wires
// stdio and runs it. Cancelling ctx kills bwrap, and --die-with-parent
// takes the sandboxed process tree down with it.
func Command(ctx context.Context, bwrapPath string, opts *Options) (*exec.Cmd, error) {
	args, err := NewBwrapBuilder().Build(opts)
	if err != nil {
		return nil, err
	}
	return exec.CommandContext(ctx, bwrapPath, args...), nil
}

// FormatCommand renders a command line for a person to copy into a
// shell: arguments that need it are single-quoted, and standard bwrap
// options start a new continuation line.
func FormatCommand(bwrapPath string, args []string) string {
	var builder strings.Builder
	builder.WriteString(shellQuote(bwrapPath))
	commandStarted := false
	for _, arg := range args {
		if !commandStarted && strings.HasPrefix(arg, "--") {
			builder.WriteString(" \\\n    ")
		} else {
			builder.WriteByte(' ')
		}
		if arg == "--" {
			commandStarted = true
		}
		builder.WriteString(shellQuote(arg))
	}
	return builder.String()
}

// shellQuote returns arg unchanged when it holds only characters that
// are safe unquoted in a POSIX shell, and single-quoted otherwise.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
