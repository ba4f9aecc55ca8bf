// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox launches a command under bubblewrap with an overlay
// mounted over the base tree, so everything the command writes lands in
// the session's upper directory for later review.
//
// [BwrapBuilder] turns [Options] into bwrap arguments: the host root is
// bound read-only, /tmp is a private tmpfs, the PID namespace is
// unshared, and the base directory is replaced by an overlayfs whose
// upper layer is the session overlay. [Command] wraps those arguments in
// an *exec.Cmd, and [FormatCommand] renders them for "audit-box new" to
// print.
//
// [Validator] performs pre-flight checks (bwrap present and
// executable, user namespaces not disabled, session directories present
// and upper/work on one filesystem) so a failed launch reports a cause
// instead of a bwrap usage error.
//
// The sandbox does not manage the process running inside it. It creates
// the namespaces and mounts, then execs the command.
package sandbox
