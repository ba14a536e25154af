package stage

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestCheckByteSource(t *testing.T) {
	tmp := paths.New(t.TempDir())
	file := tmp.Join("src.bin")
	require.NoError(t, file.WriteFile([]byte("raw bytes")))
	fh, err := file.Open()
	require.NoError(t, err)
	defer fh.Close()

	// A decoder that transcodes on the fly cannot seek over the raw bytes.
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()

	// A pipe has the right type but cannot actually seek.
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	testCases := []struct {
		name        string
		src         io.Reader
		expectError bool
	}{
		{
			name:        "open file",
			src:         fh,
			expectError: false,
		},
		{
			name:        "bytes reader",
			src:         bytes.NewReader([]byte("raw bytes")),
			expectError: false,
		},
		{
			name:        "strings reader",
			src:         strings.NewReader("raw bytes"),
			expectError: false,
		},
		{
			name:        "buffered wrapper",
			src:         bufio.NewReader(fh),
			expectError: true,
		},
		{
			name:        "transcoding wrapper",
			src:         transform.NewReader(strings.NewReader("raw bytes"), utf16),
			expectError: true,
		},
		{
			name:        "pipe",
			src:         pr,
			expectError: true,
		},
		{
			name:        "nil source",
			src:         nil,
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckByteSource(tc.src)
			if tc.expectError {
				require.ErrorIs(t, err, ErrSourceNotSeekable)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCheckDistinctFiles(t *testing.T) {
	t.Run("same lexical path", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		// Equal paths collide even when nothing exists there yet.
		err := CheckDistinctFiles(tmp.Join("missing.txt"), tmp.Join("missing.txt"))
		require.ErrorIs(t, err, ErrSameFile)
	})

	t.Run("dot segments are normalized", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		src := paths.New(tmp.String(), "sub", "..", "a.txt")
		err := CheckDistinctFiles(src, tmp.Join("a.txt"))
		require.ErrorIs(t, err, ErrSameFile)
	})

	t.Run("distinct files", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		src := tmp.Join("a.txt")
		dest := tmp.Join("b.txt")
		require.NoError(t, src.WriteFile([]byte("a")))
		require.NoError(t, dest.WriteFile([]byte("b")))
		require.NoError(t, CheckDistinctFiles(src, dest))
	})

	t.Run("destination does not exist", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		src := tmp.Join("a.txt")
		require.NoError(t, src.WriteFile([]byte("a")))
		require.NoError(t, CheckDistinctFiles(src, tmp.Join("new.txt")))
	})

	t.Run("source does not exist", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		dest := tmp.Join("b.txt")
		require.NoError(t, dest.WriteFile([]byte("b")))
		require.NoError(t, CheckDistinctFiles(tmp.Join("gone.txt"), dest))
	})

	t.Run("hard link to the same file", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		src := tmp.Join("a.txt")
		dest := tmp.Join("alias.txt")
		require.NoError(t, src.WriteFile([]byte("a")))
		require.NoError(t, os.Link(src.String(), dest.String()))

		err := CheckDistinctFiles(src, dest)
		require.ErrorIs(t, err, ErrSameFile)
	})

	t.Run("symlink to the same file", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		src := tmp.Join("a.txt")
		dest := tmp.Join("link.txt")
		require.NoError(t, src.WriteFile([]byte("a")))
		require.NoError(t, os.Symlink(src.String(), dest.String()))

		err := CheckDistinctFiles(src, dest)
		require.ErrorIs(t, err, ErrSameFile)
	})

	t.Run("nil path", func(t *testing.T) {
		tmp := paths.New(t.TempDir())
		require.Error(t, CheckDistinctFiles(nil, tmp.Join("b.txt")))
	})
}
