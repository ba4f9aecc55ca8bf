// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	cfg.Session.Directory = filepath.Join(root, "config", "audit-box")
	cfg.Session.TempRoot = filepath.Join(root, "tmp")
	if err := os.Mkdir(cfg.Session.TempRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestCreateAndLoad(t *testing.T) {
	cfg := testConfig(t)
	base := t.TempDir()
	created := time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

	session, err := Create(cfg, base, clock.Fake(created))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if filepath.Dir(session.Directory) != cfg.Session.TempRoot {
		t.Errorf("Directory %s not under temp root %s", session.Directory, cfg.Session.TempRoot)
	}
	if !strings.HasPrefix(filepath.Base(session.Directory), "audit-box-") {
		t.Errorf("Directory name = %s, want audit-box-*", filepath.Base(session.Directory))
	}
	for _, path := range []string{session.Overlay, session.Work} {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			t.Errorf("%s is not a directory: %v", path, err)
		}
	}
	if session.Base != base {
		t.Errorf("Base = %s, want %s", session.Base, base)
	}
	if !session.Created.Equal(created) {
		t.Errorf("Created = %v, want %v", session.Created, created)
	}

	info, err := os.Stat(FilePath(cfg))
	if err != nil {
		t.Fatalf("session file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}
	directoryInfo, err := os.Stat(cfg.Session.Directory)
	if err != nil {
		t.Fatal(err)
	}
	if directoryInfo.Mode().Perm() != 0o700 {
		t.Errorf("session directory mode = %v, want 0700", directoryInfo.Mode().Perm())
	}

	loaded, err := Load(FilePath(cfg))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Directory != session.Directory || loaded.Overlay != session.Overlay ||
		loaded.Work != session.Work || loaded.Base != session.Base || !loaded.Created.Equal(created) {
		t.Errorf("Load = %+v, want %+v", loaded, session)
	}

	roots := loaded.Roots()
	if roots.Overlay != session.Overlay || roots.Base != base {
		t.Errorf("Roots = %+v", roots)
	}
	if err := roots.Validate(); err != nil {
		t.Errorf("session roots do not validate: %v", err)
	}
	if loaded.JournalPath() != filepath.Join(session.Directory, "journal.cbor") {
		t.Errorf("JournalPath = %s", loaded.JournalPath())
	}
}

func TestCreateResolvesRelativeBase(t *testing.T) {
	cfg := testConfig(t)
	base := t.TempDir()
	t.Chdir(base)

	session, err := Create(cfg, ".", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Base != base {
		t.Errorf("Base = %s, want %s", session.Base, base)
	}
}

func TestCreateRejectsBadBase(t *testing.T) {
	cfg := testConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	for _, base := range []string{filepath.Join(t.TempDir(), "missing"), file} {
		if _, err := Create(cfg, base, nil); err == nil {
			t.Errorf("Create(%s) should fail", base)
		}
	}
	entries, err := os.ReadDir(cfg.Session.TempRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed Create left %d entries in temp root", len(entries))
	}
}

func TestCreateReplacesPreviousRecord(t *testing.T) {
	cfg := testConfig(t)
	first, err := Create(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Create(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(FilePath(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Directory != second.Directory {
		t.Errorf("Load returned %s, want the newer session %s", loaded.Directory, second.Directory)
	}
	if _, err := os.Stat(first.Directory); err != nil {
		t.Errorf("previous session directory was removed: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("Load error = %v, want ErrNoSession", err)
	}
}

func TestLoadStaleRemovesRecord(t *testing.T) {
	cfg := testConfig(t)
	session, err := Create(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(session.Directory); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(FilePath(cfg)); !errors.Is(err, ErrStaleSession) {
		t.Fatalf("Load error = %v, want ErrStaleSession", err)
	}
	if _, err := os.Stat(FilePath(cfg)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale record not removed: %v", err)
	}
	if _, err := Load(FilePath(cfg)); !errors.Is(err, ErrNoSession) {
		t.Errorf("second Load error = %v, want ErrNoSession", err)
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := map[string]string{
		"not json":   "directory=/tmp/x\n",
		"incomplete": `{"directory": "/tmp/x"}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || errors.Is(err, ErrNoSession) || errors.Is(err, ErrStaleSession) {
				t.Errorf("Load error = %v, want a parse error", err)
			}
		})
	}
}

func TestClearAndRemove(t *testing.T) {
	cfg := testConfig(t)
	session, err := Create(cfg, t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(session.Overlay, "pending.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Remove(session); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(session.Directory); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("session directory still exists: %v", err)
	}
	if _, err := os.Stat(session.Base); err != nil {
		t.Errorf("base removed: %v", err)
	}

	if err := Clear(FilePath(cfg)); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := Clear(FilePath(cfg)); err != nil {
		t.Errorf("second Clear: %v", err)
	}

	if err := Remove(&Session{}); err == nil {
		t.Error("Remove of an empty directory path should be refused")
	}
}
