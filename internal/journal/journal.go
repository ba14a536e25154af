// Package journal keeps a capped history of committed write operations,
// shared between processes through a lock-protected msgpack file.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/arduino/go-paths-helper"
	"github.com/gofrs/flock"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/stagefile/stagefile/pkg/stage"
)

// Operations recorded for a committed write.
const (
	OpCreate  = "create"
	OpReplace = "replace"
)

// DefaultMaxEntries caps the journal when no explicit limit is configured.
const DefaultMaxEntries = 100

// Entry is one committed write operation.
type Entry struct {
	Path  string    `msgpack:"path" json:"path"`
	Op    string    `msgpack:"op" json:"op"`
	Bytes int64     `msgpack:"bytes" json:"bytes"`
	Stamp time.Time `msgpack:"stamp" json:"stamp"`
}

// Journal records committed writes to a single msgpack file. Concurrent
// processes coordinate through a sibling ".lock" file, and the journal file
// itself is always rewritten atomically, so a reader never sees a torn
// history.
type Journal struct {
	path       *paths.Path
	maxEntries int
}

func New(path *paths.Path, maxEntries int) *Journal {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Journal{path: path, maxEntries: maxEntries}
}

// Record appends an entry for a committed write, dropping the oldest
// entries once the configured cap is exceeded.
func (j *Journal) Record(path string, op string, size int64) error {
	unlock, err := j.getWriteLock()
	if err != nil {
		return err
	}
	defer releaseLock(unlock, j.path)

	entries, err := j.readEntries()
	if err != nil {
		return err
	}
	entries = append(entries, Entry{
		Path:  path,
		Op:    op,
		Bytes: size,
		Stamp: time.Now().UTC(),
	})
	if len(entries) > j.maxEntries {
		entries = entries[len(entries)-j.maxEntries:]
	}
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return err
	}
	return stage.WriteFile(j.path, data)
}

// List returns the recorded entries, oldest first. A missing journal file
// is an empty history, not an error.
func (j *Journal) List() ([]Entry, error) {
	unlock, err := j.getReadLock()
	if err != nil {
		return nil, err
	}
	defer releaseLock(unlock, j.path)

	return j.readEntries()
}

// Clear removes the journal file. Clearing an already empty journal is fine.
func (j *Journal) Clear() error {
	unlock, err := j.getWriteLock()
	if err != nil {
		return err
	}
	defer releaseLock(unlock, j.path)

	if err := j.path.Remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (j *Journal) readEntries() ([]Entry, error) {
	content, err := j.path.ReadFile()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, err
	}
	if len(content) == 0 {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := msgpack.Unmarshal(content, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type lockFunc func(context.Context, time.Duration) (bool, error)

type UnlockFunc func() error

func emptyUnlockFunc() error {
	return nil
}

func releaseLock(unlock UnlockFunc, path *paths.Path) {
	if err := unlock(); err != nil {
		slog.Error("failed to release journal lock", "file", path, "error", err)
	}
}

func getLock(fileLock *flock.Flock, lockFn lockFunc, kind string) (UnlockFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	locked, err := lockFn(ctx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Assume the holder died and left a stale lock behind.
			if err := fileLock.Unlock(); err != nil {
				slog.Error("failed to unlock journal lock", "path", fileLock.Path(), "error", err)
			}
			if err := os.Remove(fileLock.Path()); err != nil {
				slog.Error("failed to delete journal lock file", "path", fileLock.Path(), "error", err)
			}
			locked = false
			slog.Warn("journal lock removed due to timeout", "path", fileLock.Path())
		} else {
			return emptyUnlockFunc, fmt.Errorf("failed trying to acquire %s for %s: %w", kind, fileLock.Path(), err)
		}
	}
	if !locked {
		return emptyUnlockFunc, fmt.Errorf("unable to acquire %s for %s", kind, fileLock.Path())
	}

	return func() error {
		if err := fileLock.Unlock(); err != nil {
			return fmt.Errorf("failed to unlock journal lock for %s: %w", fileLock.Path(), err)
		}
		return nil
	}, nil
}

func (j *Journal) getWriteLock() (UnlockFunc, error) {
	fileLock := flock.New(j.lockFilePath())
	return getLock(fileLock, fileLock.TryLockContext, "write lock")
}

func (j *Journal) getReadLock() (UnlockFunc, error) {
	fileLock := flock.New(j.lockFilePath())
	return getLock(fileLock, fileLock.TryRLockContext, "read lock")
}

func (j *Journal) lockFilePath() string {
	return j.path.String() + ".lock"
}
