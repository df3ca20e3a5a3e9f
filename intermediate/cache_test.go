package intermediate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoalescingCacheCoalescesDuplicates(t *testing.T) {
	c := newCoalescingCache()
	require.True(t, c.empty())

	c.add(Record{Key: "a", Value: "1"})
	c.add(Record{Key: "a", Value: "1"})
	c.add(Record{Key: "a", Value: "1"})
	c.add(Record{Key: "b", Value: "2"})

	require.False(t, c.empty())

	entries := c.sortedEntries()
	require.Len(t, entries, 2)
	require.Equal(t, Record{Key: "a", Value: "1"}, entries[0].record)
	require.Equal(t, 3, entries[0].count)
	require.Equal(t, Record{Key: "b", Value: "2"}, entries[1].record)
	require.Equal(t, 1, entries[1].count)
}

func TestCoalescingCacheSortedEntriesOrder(t *testing.T) {
	c := newCoalescingCache()
	c.add(Record{Key: "c", Value: "1"})
	c.add(Record{Key: "a", Value: "2"})
	c.add(Record{Key: "a", Value: "1"})
	c.add(Record{Key: "b", Value: "1"})

	entries := c.sortedEntries()
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].record.Less(entries[i].record))
	}
}

func TestCoalescingCacheClear(t *testing.T) {
	c := newCoalescingCache()
	c.add(Record{Key: "a", Value: "1"})
	require.False(t, c.empty())
	c.clear()
	require.True(t, c.empty())
	require.Empty(t, c.sortedEntries())
}
