package intermediate

import (
	"bufio"
	"os"

	"github.com/golangplus/errors"
)

// partitionWriter owns one partition's current unsorted spill file and its
// in-memory coalescing cache. See spec.md §4.2.
//
// sorted is true iff every record ever written to the writer went through
// the cache — i.e. the on-disk file, once closed, is already in (Key, Value)
// order and does not need an External Sorter pass before it can be merged.
type partitionWriter struct {
	filename    string
	cache       *coalescingCache
	file        *os.File
	bufw        *bufio.Writer
	cacheActive bool
	sorted      bool
	fragments   []string
}

func newPartitionWriter() *partitionWriter {
	return &partitionWriter{
		cache:  newCoalescingCache(),
		sorted: true,
	}
}

// open starts (or restarts) buffering writes to path. The cache must be
// empty when a writer (re)opens, matching the invariant in spec.md §3.
func (w *partitionWriter) open(path string) error {
	if !w.cache.empty() {
		panic("intermediate: partitionWriter.open called with a non-empty cache")
	}
	f, err := os.Create(path)
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "create spill file %q failed", path)
	}
	w.filename = path
	w.file = f
	w.bufw = bufio.NewWriter(f)
	w.cacheActive = true
	return nil
}

func (w *partitionWriter) isOpen() bool {
	return w.file != nil
}

// write buffers one record. While the cache is active, duplicate (Key,
// Value) pairs are coalesced; once the cache is deactivated (flushCache has
// run but the writer is reused before being reopened) writes go straight to
// the stream in insertion order, and the writer is marked unsorted for the
// remainder of its life.
func (w *partitionWriter) write(rec Record) error {
	if w.cacheActive {
		w.cache.add(rec)
		return nil
	}
	w.sorted = false
	return w.writeRaw(rec)
}

func (w *partitionWriter) writeRaw(rec Record) error {
	if err := encodeRecord(w.bufw, rec); err != nil {
		return err
	}
	return nil
}

// flushCache drains the cache to disk in sorted order, writing each
// coalesced entry's record exactly `count` times so multiset semantics of
// the original inserts are preserved (spec.md §4.2).
func (w *partitionWriter) flushCache() error {
	w.cacheActive = false
	for _, entry := range w.cache.sortedEntries() {
		for i := 0; i < entry.count; i++ {
			if err := w.writeRaw(entry.record); err != nil {
				return err
			}
		}
	}
	w.cache.clear()
	return nil
}

// close flushes any buffered cache entries and closes the underlying file.
// It is a no-op if the writer was never opened.
func (w *partitionWriter) close() error {
	if !w.isOpen() {
		return nil
	}
	if err := w.flushCache(); err != nil {
		return err
	}
	if err := w.bufw.Flush(); err != nil {
		return errorsp.WithStacksAndMessage(err, "flush spill file %q failed", w.filename)
	}
	err := w.file.Close()
	w.file = nil
	w.bufw = nil
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "close spill file %q failed", w.filename)
	}
	return nil
}
