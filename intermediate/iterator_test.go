package intermediate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResultIteratorEmptyStoreIsDone(t *testing.T) {
	s := New(4, WithTempDir(t.TempDir()))
	defer s.Close(context.Background())

	it, err := s.BeginResults(context.Background())
	require.NoError(t, err)
	require.True(t, it.Done())
	require.NoError(t, it.Close())
}

func TestResultIteratorMergesAcrossPartitionsInOrder(t *testing.T) {
	ctx := context.Background()
	s := New(2, WithTempDir(t.TempDir()), WithPartitioner(func(key string, n int) int {
		if key < "m" {
			return 0
		}
		return 1
	}))
	defer s.Close(ctx)

	for _, rec := range []Record{
		{Key: "banana", Value: "1"},
		{Key: "apple", Value: "1"},
		{Key: "zebra", Value: "1"},
		{Key: "mango", Value: "1"},
	} {
		_, err := s.Insert(ctx, rec.Key, rec.Value)
		require.NoError(t, err)
	}

	require.NoError(t, s.Combine(ctx, NullCombiner))
	require.NoError(t, s.Shuffle(ctx, 0))
	require.NoError(t, s.Shuffle(ctx, 1))

	it, err := s.BeginResults(ctx)
	require.NoError(t, err)
	defer it.Close()

	var got []Record
	for !it.Done() {
		got = append(got, it.Record())
		require.NoError(t, it.Next())
	}

	require.Equal(t, []Record{
		{Key: "apple", Value: "1"},
		{Key: "banana", Value: "1"},
		{Key: "mango", Value: "1"},
		{Key: "zebra", Value: "1"},
	}, got)
}

func TestResultIteratorRecordPanicsPastEnd(t *testing.T) {
	s := New(1, WithTempDir(t.TempDir()))
	defer s.Close(context.Background())

	it, err := s.BeginResults(context.Background())
	require.NoError(t, err)
	require.True(t, it.Done())
	require.Panics(t, func() { it.Record() })
}
