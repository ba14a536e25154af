package stage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/arduino/go-paths-helper"
)

var (
	// ErrSourceNotSeekable is returned by CheckByteSource for readers that
	// cannot seek over raw bytes.
	ErrSourceNotSeekable = errors.New("source does not support seeking")
	// ErrSameFile is returned by CheckDistinctFiles when source and
	// destination resolve to the same file.
	ErrSameFile = errors.New("source and destination are the same file")
)

// CheckByteSource verifies that src is a random-access byte source.
// Wrappers that transcode or buffer on the fly (transform.Reader,
// bufio.Reader) do not implement io.Seeker and are rejected; pipes
// implement it but fail the probe seek. *os.File on a regular file,
// *bytes.Reader and *strings.Reader pass.
//
// Run this before opening a write session so that an unusable source is
// reported while the destination is still untouched. The probe does not
// move the read position.
func CheckByteSource(src io.Reader) error {
	seeker, ok := src.(io.Seeker)
	if !ok {
		return fmt.Errorf("%w: %T", ErrSourceNotSeekable, src)
	}
	if _, err := seeker.Seek(0, io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceNotSeekable, err)
	}
	return nil
}

// CheckDistinctFiles verifies that src and dest are not the same file, so
// that a write session on dest cannot destroy the source it is reading
// from. Two paths are the same file when they are lexically equivalent
// (even if nothing exists there yet) or when the filesystem reports they
// name one object, hard links and symlinks included.
//
// If either file does not exist the paths cannot collide and the check
// passes. Other stat failures are reported as-is.
func CheckDistinctFiles(src, dest *paths.Path) error {
	if src == nil || dest == nil {
		return errors.New("empty path")
	}
	if src.EquivalentTo(dest) {
		return fmt.Errorf("%w: %s", ErrSameFile, dest)
	}
	srcInfo, err := src.Stat()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	destInfo, err := dest.Stat()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if os.SameFile(srcInfo, destInfo) {
		return fmt.Errorf("%w: %s", ErrSameFile, dest)
	}
	return nil
}
