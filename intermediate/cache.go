package intermediate

import "sort"

// coalescingCache buffers inserted records in memory, coalescing exact
// duplicates into a count. Go has no ordered map, so — per spec.md §9's
// re-architecture guidance ("a hash map followed by a sort on flush" is an
// equivalent strategy to an ordered associative container) — entries are
// kept in a plain map and sorted into (Key, Value) order only when flushed.
type coalescingCache struct {
	counts map[Record]int
}

func newCoalescingCache() *coalescingCache {
	return &coalescingCache{counts: make(map[Record]int)}
}

func (c *coalescingCache) add(rec Record) {
	c.counts[rec]++
}

func (c *coalescingCache) empty() bool {
	return len(c.counts) == 0
}

func (c *coalescingCache) clear() {
	c.counts = make(map[Record]int)
}

// sortedEntries returns the cache's (record, count) pairs in ascending
// (Key, Value) order, the order a flush must write them in.
func (c *coalescingCache) sortedEntries() []cacheEntry {
	entries := make([]cacheEntry, 0, len(c.counts))
	for rec, n := range c.counts {
		entries = append(entries, cacheEntry{record: rec, count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].record.Less(entries[j].record)
	})
	return entries
}

type cacheEntry struct {
	record Record
	count  int
}
