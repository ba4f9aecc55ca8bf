// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for audit-box.
//
// Configuration comes from a single file named by either the
// AUDITBOX_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). When neither is given the built-in [Default] is
// used. There is no ~/.config discovery and no search path: what runs
// is either the defaults or exactly one named file.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${XDG_CONFIG_HOME}, and ${VAR:-default} patterns are
// expanded. No environment variable overrides a config value directly.
//
// Key exports:
//
//   - [Config] -- master struct with Session, Scan, Apply, Diff, Review,
//     and Sandbox sections
//   - [Default] -- the configuration used when no file is named
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other audit-box packages.
package config
