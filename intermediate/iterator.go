package intermediate

import (
	"bufio"
	"context"
	"os"

	"github.com/golangplus/errors"

	"github.com/sdmiller/mapreduce/pkg/caller"
	"github.com/sdmiller/mapreduce/pkg/tracer"
)

// ResultIterator is the forward-only, single-pass global iterator over all
// P partitions' finalized files, yielding records in globally ascending
// (Key, Value) order by doing a live merge at read time (spec.md §4.5's
// "Global result iterator"). Every partition's file must already be
// shuffled (a single sorted file) before BeginResults is called.
type ResultIterator struct {
	readers  []*bufio.Reader
	files    []*os.File
	frontier []frontierSlot
	current  int
	done     bool
}

type frontierSlot struct {
	rec Record
	ok  bool
}

// BeginResults opens one reader per partition and positions the iterator at
// the smallest record across all of them. Partitions with no writer or no
// current file contribute no records, not an error; unshuffled fragments
// are not read.
func (s *Store) BeginResults(ctx context.Context) (*ResultIterator, error) {
	_, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	it := &ResultIterator{
		readers:  make([]*bufio.Reader, s.numPartitions),
		files:    make([]*os.File, s.numPartitions),
		frontier: make([]frontierSlot, s.numPartitions),
	}

	for part := 0; part < s.numPartitions; part++ {
		w, ok := s.writers[part]
		if !ok || w.filename == "" {
			it.frontier[part] = frontierSlot{ok: false}
			continue
		}
		f, err := os.Open(w.filename)
		if err != nil {
			it.Close()
			return nil, errorsp.WithStacksAndMessage(err, "open partition %d result file %q failed", part, w.filename)
		}
		it.files[part] = f
		it.readers[part] = bufio.NewReader(f)
		rec, ok2, err := decodeRecord(it.readers[part])
		if err != nil {
			it.Close()
			return nil, err
		}
		it.frontier[part] = frontierSlot{rec: rec, ok: ok2}
	}

	it.selectCurrent()
	return it, nil
}

// selectCurrent finds the smallest ready frontier slot and records its
// index, or marks the iterator done if no slot has a record.
func (it *ResultIterator) selectCurrent() {
	it.current = -1
	for i, slot := range it.frontier {
		if !slot.ok {
			continue
		}
		if it.current == -1 || slot.rec.Less(it.frontier[it.current].rec) {
			it.current = i
		}
	}
	it.done = it.current == -1
}

// Done reports whether the iterator has been exhausted. A fresh iterator
// over an empty store starts Done, matching spec.md §8's
// "begin_results() == end_results()" boundary case.
func (it *ResultIterator) Done() bool {
	return it.done
}

// Record returns the iterator's current record. It panics if Done.
func (it *ResultIterator) Record() Record {
	if it.done {
		invariantViolation("ResultIterator.Record called past end")
	}
	return it.frontier[it.current].rec
}

// Next advances the reader that produced the current record and
// re-selects the new smallest frontier record.
func (it *ResultIterator) Next() error {
	if it.done {
		return nil
	}
	idx := it.current
	rec, ok, err := decodeRecord(it.readers[idx])
	if err != nil {
		return err
	}
	it.frontier[idx] = frontierSlot{rec: rec, ok: ok}
	it.selectCurrent()
	return nil
}

// Close releases every reader's underlying file handle.
func (it *ResultIterator) Close() error {
	var firstErr error
	for _, f := range it.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
