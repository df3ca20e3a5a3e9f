package intermediate

import (
	"bufio"
	"os"

	"github.com/golangplus/errors"
)

// DefaultMergeFanIn bounds how many fragment files a single merge pass opens
// at once. spec.md §4.4 leaves the original's fd-table-limited fan-in as an
// implementation detail; this repo makes it an explicit constant instead of
// discovering it by letting file opens fail.
const DefaultMergeFanIn = 64

// MergeFunc performs a k-way merge of sorted, framed fragment files into
// dest. See spec.md §4.4.
type MergeFunc func(paths []string, dest string) error

// frontierEntry is one open fragment stream plus the record it has buffered.
type frontierEntry struct {
	file   *os.File
	r      *bufio.Reader
	rec    Record
	closed bool
}

func (e *frontierEntry) close() {
	if e.closed {
		return
	}
	e.closed = true
	e.file.Close()
}

// defaultMerge implements the bounded-fan-in k-way merge from spec.md §4.4:
// open up to fanIn streams, repeatedly emit the smallest frontier record
// (and every frontier record equal to it), and when more fragments remain
// than fit in one pass, rename the partial output and fold it back in as
// another input.
func defaultMerge(tempProvider func() (string, error), fanIn int) MergeFunc {
	if fanIn <= 0 {
		fanIn = DefaultMergeFanIn
	}
	return func(paths []string, dest string) error {
		pending := append([]string(nil), paths...)
		var toDelete []string
		toDelete = append(toDelete, paths...)

		for len(pending) > 0 {
			batch := pending
			if len(batch) > fanIn {
				batch = pending[:fanIn]
			}
			pending = pending[len(batch):]

			out, err := os.Create(dest)
			if err != nil {
				return errorsp.WithStacksAndMessage(err, "create merge destination %q failed", dest)
			}
			w := bufio.NewWriter(out)

			if err := mergeBatch(batch, w); err != nil {
				out.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				out.Close()
				return errorsp.WithStacksAndMessage(err, "flush merge destination %q failed", dest)
			}
			if err := out.Close(); err != nil {
				return errorsp.WithStacksAndMessage(err, "close merge destination %q failed", dest)
			}

			if len(pending) > 0 {
				// More fragments remain than fit in one fan-in pass: fold
				// this pass's output back in as another input, per the
				// rename-and-recurse trick in spec.md §4.4 step 4.
				renamed, err := tempProvider()
				if err != nil {
					return err
				}
				if err := os.Rename(dest, renamed); err != nil {
					return errorsp.WithStacksAndMessage(err, "rename intermediate merge output %q -> %q failed", dest, renamed)
				}
				pending = append(pending, renamed)
				toDelete = append(toDelete, renamed)
			}
		}

		for _, p := range toDelete {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return errorsp.WithStacksAndMessage(err, "delete consumed fragment %q failed", p)
			}
		}
		return nil
	}
}

// mergeBatch merges one fan-in-bounded batch of sorted fragment files into
// w, per spec.md §4.4 steps 1-3.
func mergeBatch(paths []string, w *bufio.Writer) error {
	var opened []*frontierEntry
	defer func() {
		for _, e := range opened {
			e.close()
		}
	}()

	frontier := make([]*frontierEntry, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return errorsp.WithStacksAndMessage(err, "open fragment %q failed", p)
		}
		entry := &frontierEntry{file: f, r: bufio.NewReader(f)}
		opened = append(opened, entry)
		rec, ok, err := decodeRecord(entry.r)
		if err != nil {
			return err
		}
		if !ok {
			entry.close()
			continue
		}
		entry.rec = rec
		frontier = append(frontier, entry)
	}

	for len(frontier) > 0 {
		minIdx := 0
		for i := 1; i < len(frontier); i++ {
			if frontier[i].rec.Less(frontier[minIdx].rec) {
				minIdx = i
			}
		}
		smallest := frontier[minIdx].rec

		var alive []*frontierEntry
		for _, entry := range frontier {
			if !entry.rec.Equal(smallest) {
				alive = append(alive, entry)
				continue
			}
			if err := encodeRecord(w, entry.rec); err != nil {
				return err
			}
			rec, ok, err := decodeRecord(entry.r)
			if err != nil {
				return err
			}
			if !ok {
				entry.close()
				continue
			}
			entry.rec = rec
			alive = append(alive, entry)
		}
		frontier = alive
	}
	return nil
}
