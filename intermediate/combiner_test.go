package intermediate

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNullCombiner(t *testing.T) {
	require.True(t, isNullCombiner(NullCombiner))
	require.False(t, isNullCombiner(&sumCombiner{}))
}

type sumCombiner struct {
	key string
	sum int
}

func (c *sumCombiner) Start(key string) { c.key = key; c.sum = 0 }
func (c *sumCombiner) Add(value string) { c.sum++ }
func (c *sumCombiner) Finish(key string, sink Inserter) {
	_, _ = sink.Insert(key, strconv.Itoa(c.sum))
}
