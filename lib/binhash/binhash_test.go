// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"
)

func TestHashFile(t *testing.T) {
	content := []byte("hello, overlay")
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}

	want := Digest(blake3.Sum256(content))
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
	if got != HashBytes(content) {
		t.Errorf("HashFile and HashBytes disagree: %s vs %s", got, HashBytes(content))
	}
}

func TestHashFileNonexistent(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("HashFile should fail for nonexistent file")
	}
}

func TestHashFileLarge(t *testing.T) {
	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "large")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := HashBytes(content); got != want {
		t.Errorf("HashFile(large) = %s, want %s", got, want)
	}
}

func TestHashBytesDistinguishesContent(t *testing.T) {
	if HashBytes([]byte("foo\nbar\n")) == HashBytes([]byte("foo\nbaz\n")) {
		t.Error("different content produced the same digest")
	}
	if HashBytes(nil).IsZero() {
		t.Error("digest of empty content should not be the zero digest")
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	original := HashBytes([]byte("round trip"))

	formatted := FormatDigest(original)
	if len(formatted) != 64 {
		t.Fatalf("FormatDigest length = %d, want 64", len(formatted))
	}

	parsed, err := ParseDigest(formatted)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip mismatch: got %s, want %s", parsed, original)
	}
}

func TestParseDigestInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "abcd"},
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
		{"too long", FormatDigest(HashBytes(nil)) + "00"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseDigest(test.input); err == nil {
				t.Errorf("ParseDigest(%q) should fail", test.input)
			}
		})
	}
}
