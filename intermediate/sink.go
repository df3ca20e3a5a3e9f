package intermediate

import (
	"bufio"
	"fmt"
	"os"

	"github.com/golangplus/errors"
)

// ResultSink receives (key, value) pairs as they are inserted, alongside
// whatever the Store itself is doing with them. See spec.md §4.5's
// insert(k, v, sink) and §6's "Result sink contract".
type ResultSink interface {
	Insert(key, value string) error
	Close() error
}

// FileResultSink is the reduce_file_output collaborator from spec.md §6: it
// writes one line per record to a file named "<spec><partition+1>_of_<P>",
// with a tab between key and value and a CR terminator — not a newline —
// matching the original Boost.MapReduce output format byte-for-byte so this
// engine's output stays diffable against it.
type FileResultSink struct {
	file *os.File
	w    *bufio.Writer
}

// NewFileResultSink opens (creating if needed) "<spec><partition+1>_of_<P>"
// for the given 0-based partition index out of numPartitions.
func NewFileResultSink(spec string, partition, numPartitions int) (*FileResultSink, error) {
	name := fmt.Sprintf("%s%d_of_%d", spec, partition+1, numPartitions)
	f, err := os.Create(name)
	if err != nil {
		return nil, errorsp.WithStacksAndMessage(err, "create result file %q failed", name)
	}
	return &FileResultSink{file: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileResultSink) Insert(key, value string) error {
	if _, err := fmt.Fprintf(s.w, "%s\t%s\r", key, value); err != nil {
		return errorsp.WithStacksAndMessage(err, "write result record (%q, %q) failed", key, value)
	}
	return nil
}

func (s *FileResultSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return errorsp.WithStacks(err)
	}
	return errorsp.WithStacks(s.file.Close())
}
