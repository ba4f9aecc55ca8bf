// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type outcomeKind uint8

func (kind outcomeKind) MarshalText() ([]byte, error) {
	if kind == 1 {
		return []byte("applied"), nil
	}
	return []byte("io_error"), nil
}

func (kind *outcomeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "applied":
		*kind = 1
	case "io_error":
		*kind = 0
	default:
		return errors.New("unknown outcome " + string(text))
	}
	return nil
}

type sampleRecord struct {
	Time   time.Time   `json:"time"`
	Path   string      `json:"path"`
	Result outcomeKind `json:"result"`
	Error  string      `json:"error,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Time:   time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC),
		Path:   "src/main.go",
		Result: 1,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Time.Equal(original.Time) || decoded.Path != original.Path || decoded.Result != original.Result {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestTextMarshalerWrittenAsString(t *testing.T) {
	data, err := Marshal(sampleRecord{Result: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, rest, err := DiagnoseFirst(data)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if len(rest) != 0 {
		t.Errorf("unexpected trailing bytes: %x", rest)
	}
	if !strings.Contains(diagnostic, `"result": "applied"`) {
		t.Errorf("diagnostic %s does not show the result by name", diagnostic)
	}
	if strings.Contains(diagnostic, `"error"`) {
		t.Errorf("omitempty field present: %s", diagnostic)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{Path: "a", Result: 1, Error: "x"}
	first, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	records := []sampleRecord{
		{Path: "a.txt", Result: 1},
		{Path: "b.txt", Result: 0, Error: "disk full"},
		{Path: "c.txt", Result: 1},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode %d: %v", index, err)
		}
		if got.Path != want.Path || got.Result != want.Result || got.Error != want.Error {
			t.Errorf("record %d = %+v, want %+v", index, got, want)
		}
	}
	var extra sampleRecord
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("Decode past end = %v, want io.EOF", err)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"path": "x", "count": 2})
	if err != nil {
		t.Fatal(err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded.(map[string]any); !ok {
		t.Errorf("decoded type = %T, want map[string]any", decoded)
	}
}
