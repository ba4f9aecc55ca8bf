// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the one CBOR configuration audit-box uses.
//
// JSON is for what a person or script reads: --json CLI output and the
// session record. CBOR is for the append-only operation journal, where
// records are written as a CBOR sequence (RFC 8742) so appending never
// rewrites earlier bytes and a torn final record does not hide the ones
// before it.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same record always produces the same bytes:
//
//	encoder := codec.NewEncoder(file)
//	err := encoder.Encode(record)
//
//	decoder := codec.NewDecoder(file)
//	for decoder.Decode(&record) == nil { ... }
//
// Types that also appear in --json output carry `json` tags only;
// fxamacker/cbor reads them as a fallback, so one tag governs both
// formats.
package codec
