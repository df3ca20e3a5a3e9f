package mapreduce

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdmiller/mapreduce/intermediate"
	"github.com/sdmiller/mapreduce/jobhistory"
)

func wordCountMap(ctx context.Context, _, value string) []KeyVal {
	counts := make(map[string]int)
	for _, word := range strings.Fields(value) {
		counts[strings.ToLower(word)]++
	}
	kvs := make([]KeyVal, 0, len(counts))
	for word, n := range counts {
		kvs = append(kvs, KeyVal{Key: word, Val: strconv.Itoa(n)})
	}
	return kvs
}

func wordCountReduce(ctx context.Context, _ string, vals []string) []string {
	total := 0
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		total += n
	}
	return []string{strconv.Itoa(total)}
}

// fixedPartitioner routes each key in assignment to its assigned partition
// and everything else to partition 0. Tests use it instead of the default
// hash partitioner so every partition is guaranteed at least one key, since
// Shuffle panics on a partition nothing was ever inserted into.
func fixedPartitioner(assignment map[string]int) intermediate.PartitionFunc {
	return func(key string, numPartitions int) int {
		if p, ok := assignment[key]; ok {
			return p
		}
		return 0
	}
}

func collectKeyVals(t *testing.T, ctx context.Context, out <-chan KeyVals) map[string][]string {
	t.Helper()
	got := make(map[string][]string)
	for {
		select {
		case <-ctx.Done():
			t.Fatal("timed out waiting for mapreduce run to finish")
		case kvs, open := <-out:
			if !open {
				return got
			}
			got[kvs.Key] = kvs.Vals
		}
	}
}

func TestMapReduceWordCount(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partitioner := fixedPartitioner(map[string]int{
		"the": 0, "quick": 0, "brown": 0,
		"fox": 1, "lazy": 1, "dog": 1, "and": 1,
	})
	mr := New(3, 2, wordCountMap, wordCountReduce,
		WithPartitioner(partitioner),
		WithStoreOptions(intermediate.WithTempDir(t.TempDir())),
	)

	in := make(chan KeyVal)
	docs := []string{
		"the quick brown fox",
		"the lazy dog",
		"the fox and the dog",
	}
	go func() {
		for _, doc := range docs {
			in <- KeyVal{Val: doc}
		}
		close(in)
	}()

	out, err := mr.Run(ctx, in)
	require.NoError(t, err)

	got := collectKeyVals(t, ctx, out)
	require.Equal(t, []string{"4"}, got["the"])
	require.Equal(t, []string{"2"}, got["fox"])
	require.Equal(t, []string{"2"}, got["dog"])
	require.Equal(t, []string{"1"}, got["quick"])
	require.Equal(t, []string{"1"}, got["brown"])
	require.Equal(t, []string{"1"}, got["lazy"])
	require.Equal(t, []string{"1"}, got["and"])
}

func TestMapReduceWithCombinerStillAggregatesCorrectly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partitioner := fixedPartitioner(map[string]int{"alpha": 0, "beta": 1, "gamma": 2})
	mr := New(4, 3, wordCountMap, wordCountReduce,
		WithCombiner(func() intermediate.Combiner { return &sumStringCombiner{} }),
		WithPartitioner(partitioner),
		WithStoreOptions(intermediate.WithTempDir(t.TempDir())),
	)

	in := make(chan KeyVal)
	go func() {
		for i := 0; i < 20; i++ {
			in <- KeyVal{Val: "alpha beta alpha gamma"}
		}
		close(in)
	}()

	out, err := mr.Run(ctx, in)
	require.NoError(t, err)

	got := collectKeyVals(t, ctx, out)
	require.Equal(t, []string{"40"}, got["alpha"])
	require.Equal(t, []string{"20"}, got["beta"])
	require.Equal(t, []string{"20"}, got["gamma"])
}

func TestMapReduceSinglePartitionDeterministicOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mr := New(1, 1, wordCountMap, wordCountReduce, WithStoreOptions(intermediate.WithTempDir(t.TempDir())))

	in := make(chan KeyVal)
	go func() {
		in <- KeyVal{Val: "zebra apple mango apple"}
		close(in)
	}()

	out, err := mr.Run(ctx, in)
	require.NoError(t, err)

	var keys []string
	got := make(map[string][]string)
	for kvs := range out {
		keys = append(keys, kvs.Key)
		got[kvs.Key] = kvs.Vals
	}
	require.Equal(t, []string{"apple", "mango", "zebra"}, keys)
	require.Equal(t, []string{"2"}, got["apple"])
}

func TestMapReduceRecordsJobHistory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ledger, err := jobhistory.Open(t.TempDir() + "/history.db")
	require.NoError(t, err)
	defer ledger.Close()

	partitioner := fixedPartitioner(map[string]int{"one": 0, "two": 1, "three": 1})
	mr := New(2, 2, wordCountMap, wordCountReduce,
		WithPartitioner(partitioner),
		WithStoreOptions(intermediate.WithTempDir(t.TempDir())),
		WithJobHistory(ledger, "test-job"),
	)

	in := make(chan KeyVal)
	go func() {
		in <- KeyVal{Val: "one two three"}
		close(in)
	}()

	out, err := mr.Run(ctx, in)
	require.NoError(t, err)
	for range out {
	}

	runs, err := ledger.History("test-job")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].FinishedAt.After(runs[0].StartedAt) || runs[0].FinishedAt.Equal(runs[0].StartedAt))
	require.GreaterOrEqual(t, runs[0].MapOut, uint64(3))
}

// sumStringCombiner sums the decimal counts under each key at combine time,
// exercising the combiner path with the same shape as countReduce.
type sumStringCombiner struct {
	sum int
}

func (c *sumStringCombiner) Start(key string) { c.sum = 0 }

func (c *sumStringCombiner) Add(value string) {
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}
	c.sum += n
}

func (c *sumStringCombiner) Finish(key string, ins intermediate.Inserter) {
	ins.Insert(key, strconv.Itoa(c.sum))
}
