// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdin is where confirmation answers are read from. Tests replace it.
var Stdin io.Reader = os.Stdin

// Confirm writes prompt to out followed by " [y/N] " and reads one line
// from in. Only "y" and "yes" (any case) confirm. End of input counts
// as no.
func Confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmOrYes returns true without asking when yes is set. Otherwise
// it prompts on stderr and reads the answer from [Stdin]. A stdin that
// is not a terminal is still read, so answers can be piped in.
func ConfirmOrYes(yes bool, prompt string) (bool, error) {
	if yes {
		return true, nil
	}
	return Confirm(Stdin, os.Stderr, prompt)
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
