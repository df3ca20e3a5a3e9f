package intermediate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileResultSinkNameAndFormat(t *testing.T) {
	dir := t.TempDir()
	spec := filepath.Join(dir, "out-")

	sink, err := NewFileResultSink(spec, 1, 4)
	require.NoError(t, err)
	require.NoError(t, sink.Insert("key1", "val1"))
	require.NoError(t, sink.Insert("key2", "val2"))
	require.NoError(t, sink.Close())

	wantName := spec + "2_of_4"
	contents, err := os.ReadFile(wantName)
	require.NoError(t, err)
	require.Equal(t, "key1\tval1\rkey2\tval2\r", string(contents))
}
