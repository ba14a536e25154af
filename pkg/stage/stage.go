// Package stage provides crash-safe creation and replacement of files.
//
// A write session either commits, making the new content appear at the
// destination as a single filesystem event, or aborts, leaving the
// destination exactly as it was before the session began. Readers polling
// the destination never observe partial content: they see the old file, the
// new file, or (for a destination that never existed) no file at all.
package stage

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/arduino/go-paths-helper"
)

const defaultPerm os.FileMode = 0o644

// stagingPrefix marks sibling staging files so that leftovers from a killed
// process are recognizable. The full staging name is derived from the
// destination's filename plus a random suffix.
const stagingPrefix = ".stagefile."

type mode int

const (
	// modeExclusive writes straight into a destination created by this
	// session. The destination did not exist beforehand.
	modeExclusive mode = iota
	// modeStaged writes into a staging file next to the destination and
	// renames it over the destination on commit.
	modeStaged
)

// Option customizes a write session.
type Option func(*settings)

type settings struct {
	perm os.FileMode
}

// WithPermissions sets the mode bits of the written file. Without this
// option a new destination is created with 0644 (before umask) and a
// replaced destination keeps the mode bits it already had.
func WithPermissions(perm os.FileMode) Option {
	return func(s *settings) {
		s.perm = perm
	}
}

// Writer is a single write session bound to one destination path.
//
// The session must be finalized exactly once, with Commit on success or
// Abort on failure. Abort after a successful Commit is a no-op, so the
// intended usage is:
//
//	w, err := stage.NewWriter(dest)
//	if err != nil {
//		return err
//	}
//	defer w.Abort()
//	if _, err := w.Write(data); err != nil {
//		return err
//	}
//	return w.Commit()
type Writer struct {
	dest      *paths.Path
	file      *os.File
	mode      mode
	staging   *paths.Path // nil unless mode == modeStaged
	finalized bool
}

// NewWriter opens a write session for dest.
//
// If dest does not exist it is created right away with an exclusive open,
// and the session writes directly into it; an abort then removes it again.
// If dest already exists the session writes into a staging file in the same
// directory (so the commit rename never crosses a filesystem boundary) and
// dest is not touched until Commit renames the staging file over it.
//
// A destination that exists but is not writable, or whose parent directory
// is missing, fails here with the underlying os error and without leaving
// anything behind.
func NewWriter(dest *paths.Path, opts ...Option) (*Writer, error) {
	if dest == nil {
		return nil, errors.New("empty destination path")
	}
	var set settings
	for _, opt := range opts {
		opt(&set)
	}

	// First try to create the destination exclusively. The open must make
	// the decision: a separate existence check would race against other
	// processes.
	perm := set.perm
	if perm == 0 {
		perm = defaultPerm
	}
	f, err := os.OpenFile(dest.String(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err == nil {
		if set.perm != 0 {
			// The open masks the requested bits with the umask; explicit
			// permissions must come out exact, as in the staged strategy.
			if err := f.Chmod(set.perm); err != nil {
				_ = f.Close()
				_ = os.Remove(dest.String())
				return nil, err
			}
		}
		return &Writer{dest: dest, file: f, mode: modeExclusive}, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		// Missing parent directory, permission problems and the like.
		// Only "already exists" switches strategy.
		return nil, err
	}

	// The destination exists: stage the new content in a sibling file.
	// Opening for append proves we may modify the destination before any
	// staging file is created; the content is left alone.
	probe, err := os.OpenFile(dest.String(), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, err
	}
	info, statErr := probe.Stat()
	if err := probe.Close(); err != nil {
		return nil, err
	}
	if statErr != nil {
		return nil, statErr
	}

	staging, err := os.CreateTemp(dest.Parent().String(), stagingPrefix+dest.Base()+".*")
	if err != nil {
		return nil, err
	}
	if set.perm == 0 {
		// Keep the mode bits of the file being replaced.
		perm = info.Mode().Perm()
	}
	if err := staging.Chmod(perm); err != nil {
		_ = staging.Close()
		_ = os.Remove(staging.Name())
		return nil, err
	}
	return &Writer{
		dest:    dest,
		file:    staging,
		mode:    modeStaged,
		staging: paths.New(staging.Name()),
	}, nil
}

// Write writes p to the session's file handle.
func (w *Writer) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Path returns the destination path the session will commit to.
func (w *Writer) Path() *paths.Path {
	return w.dest
}

// Name returns the path of the file the handle is actually writing: the
// destination itself for a new file, the staging file for a replacement.
func (w *Writer) Name() string {
	return w.file.Name()
}

// Replacing reports whether the destination existed when the session began,
// i.e. whether Commit will replace it via the staging file.
func (w *Writer) Replacing() bool {
	return w.mode == modeStaged
}

// Commit flushes and closes the session's file and makes the written
// content appear at the destination. For a replacement this is a single
// rename; for a new file the content is already in place. A session can be
// committed only once; afterwards Commit returns fs.ErrClosed.
//
// If Commit fails the session is not finalized and the caller's deferred
// Abort restores the pre-session state.
func (w *Writer) Commit() error {
	if w.finalized {
		return fs.ErrClosed
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return err
	}
	if w.mode == modeStaged {
		if err := os.Rename(w.staging.String(), w.dest.String()); err != nil {
			return err
		}
	}
	w.finalized = true
	return nil
}

// Abort discards the session. In exclusive-create mode the destination is
// removed: the session created it, so removal restores the previous
// "does not exist" state. In staged mode the staging file is removed and
// the destination is never touched.
//
// Aborting a committed (or already aborted) session is a no-op. A missing
// file during cleanup is tolerated; any other cleanup failure is returned.
func (w *Writer) Abort() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	// The handle may already be closed by a failed Commit.
	_ = w.file.Close()

	victim := w.dest
	if w.mode == modeStaged {
		victim = w.staging
	}
	if err := victim.Remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WriteFile atomically writes data to dest, creating or replacing it.
func WriteFile(dest *paths.Path, data []byte, opts ...Option) (err error) {
	w, err := NewWriter(dest, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if aerr := w.Abort(); aerr != nil && err == nil {
			err = aerr
		}
	}()
	if _, err = w.Write(data); err != nil {
		return err
	}
	return w.Commit()
}

// WriteReader atomically writes the contents of src to dest and returns the
// number of bytes copied. Like WriteFile, a failure leaves dest untouched.
func WriteReader(dest *paths.Path, src io.Reader, opts ...Option) (n int64, err error) {
	w, err := NewWriter(dest, opts...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if aerr := w.Abort(); aerr != nil && err == nil {
			err = aerr
		}
	}()
	if n, err = io.Copy(w, src); err != nil {
		return n, err
	}
	return n, w.Commit()
}
