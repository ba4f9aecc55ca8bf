// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/codec"
	"github.com/bureau-foundation/auditbox/overlay"
)

// FileName is the journal's name inside a session directory.
const FileName = "journal.cbor"

// Operation names the kind of batch a record came from.
type Operation string

const (
	OperationApply   Operation = "apply"
	OperationDiscard Operation = "discard"
)

// ErrTornRecord reports a journal whose final record is incomplete,
// usually because the writer was killed mid-append. [ReadAll] returns
// the complete records before it alongside this error.
var ErrTornRecord = errors.New("journal ends in an incomplete record")

// Record is one outcome of an apply or discard batch.
type Record struct {
	Time      time.Time `json:"time"`
	Operation Operation `json:"operation"`
	Path      string    `json:"path"`

	// Result is the outcome name: "applied", "verification_failed",
	// "io_error", or "deleted".
	Result string `json:"result"`

	// Digest is the hex BLAKE3 digest of the overlay content that was
	// applied. Empty for discards and for failed reads.
	Digest string `json:"digest,omitempty"`

	Error string `json:"error,omitempty"`
}

// Journal appends records to a file. Safe for concurrent use within a
// process; each Append is a single write so concurrent processes
// appending to the same file do not interleave record bytes.
type Journal struct {
	path  string
	clock clock.Clock

	mu sync.Mutex
}

// Open returns a journal writing to path. The file is created on the
// first Append. A nil clock uses the real clock.
func Open(path string, source clock.Clock) *Journal {
	if source == nil {
		source = clock.Real()
	}
	return &Journal{path: path, clock: source}
}

// Path returns the journal file path.
func (journal *Journal) Path() string {
	return journal.path
}

// Append writes records to the end of the journal. Records with a zero
// Time are stamped with the journal's clock.
func (journal *Journal) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	var buffer bytes.Buffer
	encoder := codec.NewEncoder(&buffer)
	now := journal.clock.Now().UTC()
	for _, record := range records {
		if record.Time.IsZero() {
			record.Time = now
		}
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encoding journal record for %s: %w", record.Path, err)
		}
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()

	file, err := os.OpenFile(journal.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	if _, err := file.Write(buffer.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("appending to journal: %w", err)
	}
	return file.Close()
}

// RecordApply appends one record per apply outcome.
func (journal *Journal) RecordApply(outcomes []overlay.ApplyOutcome) error {
	records := make([]Record, 0, len(outcomes))
	for _, outcome := range outcomes {
		record := Record{
			Operation: OperationApply,
			Path:      outcome.Path,
			Result:    outcome.Result.String(),
		}
		if !outcome.Digest.IsZero() {
			record.Digest = outcome.Digest.String()
		}
		if outcome.Err != nil {
			record.Error = outcome.Err.Error()
		}
		records = append(records, record)
	}
	return journal.Append(records...)
}

// RecordDiscard appends one record per discard outcome.
func (journal *Journal) RecordDiscard(outcomes []overlay.DiscardOutcome) error {
	records := make([]Record, 0, len(outcomes))
	for _, outcome := range outcomes {
		record := Record{
			Operation: OperationDiscard,
			Path:      outcome.Path,
			Result:    outcome.Result.String(),
		}
		if outcome.Err != nil {
			record.Error = outcome.Err.Error()
		}
		records = append(records, record)
	}
	return journal.Append(records...)
}

// ReadAll decodes every record in the journal at path, oldest first. A
// missing journal has no records and is not an error.
func ReadAll(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer file.Close()

	var records []Record
	decoder := codec.NewDecoder(file)
	for {
		var record Record
		err := decoder.Decode(&record)
		if err == nil {
			records = append(records, record)
			continue
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return records, fmt.Errorf("%s after %d records: %w", path, len(records), ErrTornRecord)
		}
		return records, fmt.Errorf("decoding journal record %d: %w", len(records)+1, err)
	}
}
