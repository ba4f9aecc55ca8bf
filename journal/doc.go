// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps an append-only record of what audit-box did to
// the base and the overlay. Every apply and discard batch appends one
// [Record] per path, encoded as a CBOR sequence through lib/codec.
//
// The journal lives in the session directory and is read back by
// "audit-box log". It is an audit trail, not a recovery log: nothing
// replays it.
package journal
