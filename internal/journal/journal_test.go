package journal

import (
	"fmt"
	"testing"

	"github.com/arduino/go-paths-helper"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	tmp := paths.New(t.TempDir())
	j := New(tmp.Join("journal.msgpack"), 0)

	entries, err := j.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, j.Record("/data/a.txt", OpCreate, 12))
	require.NoError(t, j.Record("/data/a.txt", OpReplace, 34))

	entries, err = j.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "/data/a.txt", entries[0].Path)
	require.Equal(t, OpCreate, entries[0].Op)
	require.Equal(t, int64(12), entries[0].Bytes)
	require.False(t, entries[0].Stamp.IsZero())

	require.Equal(t, OpReplace, entries[1].Op)
	require.Equal(t, int64(34), entries[1].Bytes)
}

func TestMaxEntries(t *testing.T) {
	tmp := paths.New(t.TempDir())
	j := New(tmp.Join("journal.msgpack"), 3)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(fmt.Sprintf("/data/%d.txt", i), OpCreate, int64(i)))
	}

	entries, err := j.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// The oldest entries are dropped first.
	require.Equal(t, "/data/2.txt", entries[0].Path)
	require.Equal(t, "/data/4.txt", entries[2].Path)
}

func TestClear(t *testing.T) {
	tmp := paths.New(t.TempDir())
	file := tmp.Join("journal.msgpack")
	j := New(file, 0)

	require.NoError(t, j.Record("/data/a.txt", OpCreate, 1))
	require.True(t, file.Exist())

	require.NoError(t, j.Clear())
	require.True(t, file.NotExist())

	entries, err := j.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	// Clearing twice must not fail.
	require.NoError(t, j.Clear())
}

func TestEmptyJournalFile(t *testing.T) {
	tmp := paths.New(t.TempDir())
	file := tmp.Join("journal.msgpack")
	require.NoError(t, file.WriteFile(nil))

	entries, err := New(file, 0).List()
	require.NoError(t, err)
	require.Empty(t, entries)
}
