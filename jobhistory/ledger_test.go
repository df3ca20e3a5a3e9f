package jobhistory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLedgerRecordAndHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	_ = os.Remove(path)

	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	first := Run{
		StartedAt:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 1, 10, 0, 5, 0, time.UTC),
		MapIn:      10, MapOut: 40, ReduceIn: 40, ReduceOut: 12,
	}
	second := Run{
		StartedAt:  time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 1, 11, 0, 3, 0, time.UTC),
		MapIn:      5, MapOut: 20, ReduceIn: 20, ReduceOut: 9,
		Err: "partition 2: disk full",
	}

	require.NoError(t, l.Record("wordcount", second))
	require.NoError(t, l.Record("wordcount", first))

	runs, err := l.History("wordcount")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, first.StartedAt, runs[0].StartedAt)
	require.Equal(t, second.StartedAt, runs[1].StartedAt)
	require.Equal(t, "", runs[0].Err)
	require.Equal(t, "partition 2: disk full", runs[1].Err)
}

func TestLedgerHistoryUnknownJobIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	runs, err := l.History("nonexistent")
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestLedgerSeparatesJobsByBucket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Record("wordcount", Run{StartedAt: time.Now()}))
	require.NoError(t, l.Record("inverted-index", Run{StartedAt: time.Now()}))

	wc, err := l.History("wordcount")
	require.NoError(t, err)
	require.Len(t, wc, 1)

	idx, err := l.History("inverted-index")
	require.NoError(t, err)
	require.Len(t, idx, 1)
}
