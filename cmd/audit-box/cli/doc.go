// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the audit-box
// binary.
//
// A [Command] tree is dispatched by its first positional argument.
// Leaf commands declare their flags as a tagged parameter struct
// (see [BindFlags]), get typo suggestions for unknown commands and
// flags, and receive a context and a structured logger. Every command
// accepts --debug, which lowers the log level to Debug; setting
// AUDITBOX_DEBUG does the same.
//
// Commands report failures with categorized [ToolError] values, and
// signal a handled non-zero exit with [ExitError]. [JSONOutput] adds a
// --json flag to any parameter struct.
package cli
