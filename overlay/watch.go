// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package overlay

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/auditbox/lib/clock"
)

// DefaultWatchDebounce is how long the watcher waits after the first
// event of a burst before reporting a change.
const DefaultWatchDebounce = 200 * time.Millisecond

// watchMask selects the inotify events that can change a scan result.
const watchMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO | unix.IN_ATTRIB |
	unix.IN_DELETE_SELF | unix.IN_MOVE_SELF

// WatcherOptions tunes a [Watcher].
type WatcherOptions struct {
	// Debounce coalesces bursts of events into one notification.
	// Zero uses DefaultWatchDebounce.
	Debounce time.Duration

	// Clock drives the debounce timer. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives debug records for watch bookkeeping. Nil
	// discards.
	Logger *slog.Logger
}

// Watcher reports changes anywhere under an overlay root. Every
// directory in the tree gets an inotify watch; directories created
// later are added as their creation events arrive. Bursts of events are
// coalesced into a single value on [Watcher.Changes], which a reviewer
// uses as a cue to rescan.
type Watcher struct {
	fd      int
	root    string
	options WatcherOptions

	// watches maps watch descriptors to directory paths. Owned by the
	// loop goroutine after NewWatcher returns.
	watches map[int32]string

	changes   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching root recursively.
func NewWatcher(root string, options WatcherOptions) (*Watcher, error) {
	if options.Debounce <= 0 {
		options.Debounce = DefaultWatchDebounce
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("initializing inotify: %w", err)
	}

	watcher := &Watcher{
		fd:      fd,
		root:    root,
		options: options,
		watches: make(map[int32]string),
		changes: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := watcher.addRecursive(root); err != nil {
		unix.Close(fd)
		return nil, err
	}

	go watcher.loop()
	return watcher, nil
}

// Changes delivers one value per debounced burst of filesystem
// activity. The channel has capacity one: a pending notification
// absorbs further bursts until it is received.
func (watcher *Watcher) Changes() <-chan struct{} {
	return watcher.changes
}

// Close stops the watcher and releases the inotify descriptor. Safe to
// call more than once.
func (watcher *Watcher) Close() error {
	watcher.closeOnce.Do(func() { close(watcher.stop) })
	<-watcher.done
	return nil
}

// addRecursive adds a watch on directory and every directory beneath
// it. Only a failure on the top directory is returned; subdirectories
// that vanish or cannot be watched are skipped.
func (watcher *Watcher) addRecursive(directory string) error {
	descriptor, err := unix.InotifyAddWatch(watcher.fd, directory, watchMask)
	if err != nil {
		return fmt.Errorf("watching %s: %w", directory, err)
	}
	watcher.watches[int32(descriptor)] = directory

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(directory, entry.Name())
		if err := watcher.addRecursive(child); err != nil {
			watcher.options.Logger.Debug("skipping watch", "path", child, "error", err)
		}
	}
	return nil
}

// loop polls the inotify descriptor with a short timeout so the stop
// channel is checked regularly. After the first relevant event it waits
// out the debounce window, drains whatever arrived meanwhile, and
// publishes one notification.
func (watcher *Watcher) loop() {
	defer close(watcher.done)
	defer unix.Close(watcher.fd)

	buffer := make([]byte, 64*1024)
	for {
		select {
		case <-watcher.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(watcher.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			watcher.options.Logger.Debug("inotify poll failed, watcher stopping", "error", err)
			return
		}
		if count == 0 {
			continue
		}

		if !watcher.readEvents(buffer) {
			continue
		}

		select {
		case <-watcher.stop:
			return
		case <-watcher.options.Clock.After(watcher.options.Debounce):
		}
		watcher.readEvents(buffer)

		select {
		case watcher.changes <- struct{}{}:
		default:
		}
	}
}

// readEvents drains the descriptor, adding watches for new directories.
// Returns whether any event was read.
func (watcher *Watcher) readEvents(buffer []byte) bool {
	changed := false
	for {
		bytesRead, err := unix.Read(watcher.fd, buffer)
		if err != nil || bytesRead <= 0 {
			return changed
		}
		for _, event := range parseInotifyEvents(buffer[:bytesRead]) {
			changed = true
			watcher.handleEvent(event)
		}
	}
}

func (watcher *Watcher) handleEvent(event inotifyEvent) {
	if event.mask&unix.IN_IGNORED != 0 {
		delete(watcher.watches, event.descriptor)
		return
	}
	if event.mask&unix.IN_ISDIR == 0 || event.mask&(unix.IN_CREATE|unix.IN_MOVED_TO) == 0 {
		return
	}
	parent, ok := watcher.watches[event.descriptor]
	if !ok || event.name == "" {
		return
	}
	directory := filepath.Join(parent, event.name)
	if err := watcher.addRecursive(directory); err != nil {
		watcher.options.Logger.Debug("skipping watch", "path", directory, "error", err)
	}
}

// inotifyEvent is the decoded form of struct inotify_event.
type inotifyEvent struct {
	descriptor int32
	mask       uint32
	name       string
}

// parseInotifyEvents decodes a read buffer. Layout from inotify(7):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded to alignment
//	};
func parseInotifyEvents(buffer []byte) []inotifyEvent {
	var events []inotifyEvent
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		descriptor := int32(binary.NativeEndian.Uint32(buffer[offset : offset+4]))
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		name := ""
		if nameLength > 0 {
			nameBytes := buffer[offset+unix.SizeofInotifyEvent : offset+eventSize]
			for index, b := range nameBytes {
				if b == 0 {
					nameBytes = nameBytes[:index]
					break
				}
			}
			name = string(nameBytes)
		}

		events = append(events, inotifyEvent{descriptor: descriptor, mask: mask, name: name})
		offset += eventSize
	}
	return events
}
