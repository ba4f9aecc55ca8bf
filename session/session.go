// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/auditbox/journal"
	"github.com/bureau-foundation/auditbox/lib/clock"
	"github.com/bureau-foundation/auditbox/lib/config"
	"github.com/bureau-foundation/auditbox/overlay"
)

// FileName is the session record's name inside the configured session
// directory.
const FileName = "session.json"

var (
	// ErrNoSession means no session record exists.
	ErrNoSession = errors.New("no active audit-box session")

	// ErrStaleSession means the record named a session directory that
	// no longer exists. The record has been removed.
	ErrStaleSession = errors.New("audit-box session directory no longer exists")
)

// Session is one sandboxed run's overlay layout: a private temporary
// directory holding the overlay upper layer and the overlayfs work
// directory, plus the base tree it is layered over.
type Session struct {
	// Directory is the temporary directory holding Overlay and Work.
	Directory string `json:"directory"`

	// Overlay is the upper layer the sandbox writes into.
	Overlay string `json:"overlay"`

	// Work is overlayfs scratch space. It must be on the same
	// filesystem as Overlay and is never scanned.
	Work string `json:"work"`

	// Base is the absolute path of the tree the sandbox sees read-only.
	Base string `json:"base"`

	Created time.Time `json:"created"`
}

// Roots returns the engine view of the session.
func (session *Session) Roots() overlay.Roots {
	return overlay.Roots{Overlay: session.Overlay, Base: session.Base}
}

// JournalPath returns the path of the session's operation journal.
func (session *Session) JournalPath() string {
	return filepath.Join(session.Directory, journal.FileName)
}

// FilePath returns where the session record is kept for cfg.
func FilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Session.Directory, FileName)
}

// Create makes a new session over base: a fresh audit-box-* directory
// under cfg.Session.TempRoot with overlay/ and work/ inside it. The
// record is saved to [FilePath], replacing any previous one. The
// previous session's directory is left alone.
func Create(cfg *config.Config, base string, source clock.Clock) (*Session, error) {
	if source == nil {
		source = clock.Real()
	}

	absoluteBase, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base %s: %w", base, err)
	}
	info, err := os.Stat(absoluteBase)
	if err != nil {
		return nil, fmt.Errorf("base path %s: %w", absoluteBase, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", absoluteBase)
	}

	directory, err := os.MkdirTemp(cfg.Session.TempRoot, "audit-box-")
	if err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	session := &Session{
		Directory: directory,
		Overlay:   filepath.Join(directory, "overlay"),
		Work:      filepath.Join(directory, "work"),
		Base:      absoluteBase,
		Created:   source.Now().UTC(),
	}
	for _, path := range []string{session.Overlay, session.Work} {
		if err := os.Mkdir(path, 0o755); err != nil {
			os.RemoveAll(directory)
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
	}

	if err := Save(FilePath(cfg), session); err != nil {
		os.RemoveAll(directory)
		return nil, err
	}
	return session, nil
}

// Save writes the session record atomically: a temporary file in the
// same directory is written, synced, and renamed into place. The parent
// is created with mode 0700 and the file with 0600.
func Save(path string, session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating session directory %s: %w", directory, err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary session file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary session file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary session file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary session file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming session file into place: %w", err)
	}
	return nil
}

// Load reads the session record at path. A missing record returns
// [ErrNoSession]. A record whose directory has been deleted (a reboot
// cleared /tmp, say) is removed and [ErrStaleSession] returned.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session file %s: %w", path, err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parsing session file %s: %w", path, err)
	}
	if session.Directory == "" || session.Overlay == "" || session.Base == "" {
		return nil, fmt.Errorf("session file %s is incomplete", path)
	}

	if _, err := os.Stat(session.Directory); errors.Is(err, os.ErrNotExist) {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %s", ErrStaleSession, session.Directory)
	}
	return &session, nil
}

// Clear removes the session record. Idempotent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// Remove deletes the session's temporary directory, including any
// unapplied overlay content and the journal. The base is not touched.
func Remove(session *Session) error {
	if session.Directory == "" || session.Directory == "/" {
		return fmt.Errorf("refusing to remove session directory %q", session.Directory)
	}
	if err := os.RemoveAll(session.Directory); err != nil {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}
