package intermediate

import (
	"bufio"
	"io"
	"strconv"

	"github.com/golangplus/bytes"
	"github.com/golangplus/errors"
)

// Record is one key/value pair flowing through the engine. Keys are totally
// ordered and comparable via plain string comparison; the zero value ("") is
// the "no current group" sentinel used by Combine and Reduce.
type Record struct {
	Key   string
	Value string
}

// Less orders records by (Key, Value), the order every sorted fragment in
// this package is required to be in.
func (r Record) Less(other Record) bool {
	if r.Key != other.Key {
		return r.Key < other.Key
	}
	return r.Value < other.Value
}

// Equal reports whether two records have the same key and value.
func (r Record) Equal(other Record) bool {
	return r.Key == other.Key && r.Value == other.Value
}

// Empty reports whether r's key is the zero-length sentinel.
func (r Record) Empty() bool {
	return len(r.Key) == 0
}

// encodeRecord writes one framed record:
//
//	<ASCII-decimal key-length> TAB <key-bytes> TAB <value-text> CR
//
// Keys are length-prefixed so they may contain any byte, including tabs and
// CRs; values use their plain textual form and must not contain a CR (see
// the open question in spec.md §9).
func encodeRecord(w io.Writer, rec Record) error {
	var buf bytesp.Slice
	buf.Write([]byte(strconv.Itoa(len(rec.Key))))
	buf.Write([]byte{'\t'})
	buf.Write([]byte(rec.Key))
	buf.Write([]byte{'\t'})
	buf.Write([]byte(rec.Value))
	buf.Write([]byte{'\r'})
	if _, err := w.Write([]byte(buf)); err != nil {
		return errorsp.WithStacksAndMessage(err, "encode record %+v failed", rec)
	}
	return nil
}

// decodeRecord reads one framed record from r. It returns ok=false with a
// nil error at clean EOF or when the length prefix parses as zero — a
// malformed or truncated length prefix is treated the same way so the
// engine stays robust against truncated spills.
func decodeRecord(r *bufio.Reader) (rec Record, ok bool, err error) {
	lenStr, err := r.ReadString('\t')
	if err != nil {
		// Clean EOF or a truncated length prefix: both are reported as
		// end-of-stream so the engine stays robust against truncated spills.
		return Record{}, false, nil
	}
	lenStr = lenStr[:len(lenStr)-1] // drop trailing tab

	keyLen, convErr := strconv.Atoi(lenStr)
	if convErr != nil || keyLen <= 0 {
		return Record{}, false, nil
	}

	keyBuf := make([]byte, keyLen)
	if _, err := io.ReadFull(r, keyBuf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Record{}, false, nil
		}
		return Record{}, false, errorsp.WithStacksAndMessage(err, "reading key of length %d failed", keyLen)
	}

	sep, err := r.ReadByte()
	if err != nil {
		return Record{}, false, nil
	}
	if sep != '\t' {
		return Record{}, false, errorsp.NewWithStacks("bad framing: expected TAB after key, got %q", sep)
	}

	valBuf, err := r.ReadString('\r')
	if err != nil {
		if err == io.EOF {
			return Record{}, false, nil
		}
		return Record{}, false, errorsp.WithStacksAndMessage(err, "reading value for key %q failed", string(keyBuf))
	}
	valBuf = valBuf[:len(valBuf)-1] // drop trailing CR

	return Record{Key: string(keyBuf), Value: valBuf}, true, nil
}
