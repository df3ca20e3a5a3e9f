package intermediate

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func readAllRecords(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := bufio.NewReader(f)
	var out []Record
	for {
		rec, ok, err := decodeRecord(r)
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, rec)
	}
	return out
}

func TestPartitionWriterCoalescesThenFlushesSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.tmp")
	w := newPartitionWriter()
	require.NoError(t, w.open(path))
	require.True(t, w.isOpen())

	require.NoError(t, w.write(Record{Key: "b", Value: "1"}))
	require.NoError(t, w.write(Record{Key: "a", Value: "1"}))
	require.NoError(t, w.write(Record{Key: "a", Value: "1"}))
	require.NoError(t, w.write(Record{Key: "a", Value: "2"}))

	require.NoError(t, w.close())
	require.False(t, w.isOpen())
	require.True(t, w.sorted)

	got := readAllRecords(t, path)
	require.Equal(t, []Record{
		{Key: "a", Value: "1"},
		{Key: "a", Value: "1"},
		{Key: "a", Value: "2"},
		{Key: "b", Value: "1"},
	}, got)
}

func TestPartitionWriterDirectWriteMarksUnsorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.tmp")
	w := newPartitionWriter()
	require.NoError(t, w.open(path))

	require.NoError(t, w.write(Record{Key: "z", Value: "1"}))
	require.NoError(t, w.flushCache())
	require.False(t, w.cacheActive)

	require.NoError(t, w.write(Record{Key: "a", Value: "1"}))
	require.False(t, w.sorted)

	require.NoError(t, w.close())

	got := readAllRecords(t, path)
	require.Equal(t, []Record{
		{Key: "z", Value: "1"},
		{Key: "a", Value: "1"},
	}, got)
}

func TestPartitionWriterOpenPanicsOnNonEmptyCache(t *testing.T) {
	w := newPartitionWriter()
	w.cache.add(Record{Key: "a", Value: "1"})
	require.Panics(t, func() {
		_ = w.open(filepath.Join(t.TempDir(), "x.tmp"))
	})
}

func TestPartitionWriterCloseOnUnopenedIsNoop(t *testing.T) {
	w := newPartitionWriter()
	require.NoError(t, w.close())
}
