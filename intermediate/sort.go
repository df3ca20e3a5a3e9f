package intermediate

import (
	"bufio"
	"os"
	"sort"
	"strconv"

	"github.com/daviddengcn/go-villa"
	"github.com/golangplus/errors"
)

// SortFunc sorts the framed records in inPath by (Key, Value) and writes
// them to outPath. It is the External Sorter contract from spec.md §4.3;
// callers delete inPath once SortFunc returns successfully.
type SortFunc func(inPath, outPath string) error

// defaultSort is grounded in daviddengcn-sophie's FileSorter.NewReduceIterator
// (sorters.go): the whole input is read into one byte buffer, record
// boundaries are tracked as offsets into that buffer rather than as decoded
// Go strings, and sort.Slice over a permutation of record indices does the
// actual reordering; the records are then re-encoded in that order. Sophie tracks vint-framed boundaries; this repo's framing is
// tab/CR-delimited, so the boundary scan differs, but the offset-buffer
// shape — and the third-party villa.ByteSlice/villa.IntSlice types that hold
// it — is the same.
func defaultSort(inPath, outPath string) error {
	buf, keyOffs, keyEnds, valOffs, valEnds, err := readAsByteOffsets(inPath)
	if err != nil {
		return err
	}

	order := make([]int, len(keyOffs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if c := bytesCmp(buf[keyOffs[a]:keyEnds[a]], buf[keyOffs[b]:keyEnds[b]]); c != 0 {
			return c < 0
		}
		return bytesCmp(buf[valOffs[a]:valEnds[a]], buf[valOffs[b]:valEnds[b]]) < 0
	})

	out, err := os.Create(outPath)
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "create sorted output %q failed", outPath)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for _, idx := range order {
		rec := Record{
			Key:   string(buf[keyOffs[idx]:keyEnds[idx]]),
			Value: string(buf[valOffs[idx]:valEnds[idx]]),
		}
		if err := encodeRecord(w, rec); err != nil {
			return err
		}
	}
	return errorsp.WithStacks(w.Flush())
}

// readAsByteOffsets reads the whole framed file at path into a single
// villa.ByteSlice buffer and returns, for every record in file order, the
// [start,end) byte ranges of its key and value within that buffer.
func readAsByteOffsets(path string) (buf villa.ByteSlice, keyOffs, keyEnds, valOffs, valEnds villa.IntSlice, err error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, nil, nil, nil, nil, errorsp.WithStacksAndMessage(readErr, "read spill file %q failed", path)
	}
	buf = villa.ByteSlice(raw)

	pos := 0
	for pos < len(buf) {
		tab := indexByte(buf, pos, '\t')
		if tab < 0 {
			break
		}
		keyLen, convErr := strconv.Atoi(string(buf[pos:tab]))
		if convErr != nil || keyLen <= 0 {
			break
		}
		keyStart := tab + 1
		keyEnd := keyStart + keyLen
		if keyEnd >= len(buf) || buf[keyEnd] != '\t' {
			break
		}
		valStart := keyEnd + 1
		cr := indexByte(buf, valStart, '\r')
		if cr < 0 {
			break
		}

		keyOffs.Add(keyStart)
		keyEnds.Add(keyEnd)
		valOffs.Add(valStart)
		valEnds.Add(cr)

		pos = cr + 1
	}
	return buf, keyOffs, keyEnds, valOffs, valEnds, nil
}

func indexByte(buf []byte, from int, b byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == b {
			return i
		}
	}
	return -1
}

// bytesCmp compares two byte slices lexicographically, the same "compare
// byte-by-byte, shorter-is-less-on-common-prefix" rule spec.md requires of
// the codec's key/value ordering (mirrored from daviddengcn-sophie's
// bytesCmp in sorters.go).
func bytesCmp(a, b []byte) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	if len(b) > len(a) {
		return -1
	}
	return 0
}
