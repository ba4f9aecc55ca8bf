// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/term"
)

// DebugEnvironmentVariable enables debug logging for every command.
const DebugEnvironmentVariable = "AUDITBOX_DEBUG"

// NewCommandLogger creates a structured logger for command output on
// stderr. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped or redirected it uses
// slog.JSONHandler so scripts can parse it.
//
// The level is Info, or Debug when debug is set or AUDITBOX_DEBUG
// parses as true.
func NewCommandLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || debugFromEnvironment() {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

func debugFromEnvironment() bool {
	enabled, err := strconv.ParseBool(os.Getenv(DebugEnvironmentVariable))
	return err == nil && enabled
}
