// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content hashing for overlay files.
//
// audit-box records a digest for every file it writes into the base so
// the journal shows exactly which content was committed, and so the
// status listing can print content identities next to paths.
//
//   - [HashFile] streams a file through BLAKE3 with constant memory
//   - [HashBytes] hashes content already read into memory (the apply
//     path reads each file once and hashes the same buffer it writes)
//   - [FormatDigest] and [ParseDigest] convert to and from the
//     canonical hex form
//
// This package has no dependencies on other audit-box packages.
package binhash
