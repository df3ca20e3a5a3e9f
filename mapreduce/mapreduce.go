package mapreduce

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sdmiller/mapreduce/intermediate"
	"github.com/sdmiller/mapreduce/jobhistory"
)

// MapReduce drives a complete map/combine/shuffle/reduce run. Every mapper
// owns its own intermediate.Store; those stores feed a single aggregate
// Store through MergeFrom once mapping finishes, and the reduce phase
// shuffles and reduces that aggregate one partition at a time.
type MapReduce struct {
	mapFn       MapFunc
	mapperCount int

	reduceFn     ReduceFunc
	reducerCount int

	newCombiner func() intermediate.Combiner
	partitioner intermediate.PartitionFunc
	storeOpts   []intermediate.StoreOption

	jobName string
	history *jobhistory.Ledger
}

// Option configures a MapReduce at construction time.
type Option func(*MapReduce)

// WithCombiner sets the factory used to build a fresh Combiner for each
// mapper's store. A factory, not a shared instance, because every mapper
// combines concurrently and a Combiner's Start/Add/Finish cycle carries
// mutable per-group state that can't be shared across goroutines. The
// default factory returns intermediate.NullCombiner, which performs no
// combining.
func WithCombiner(newCombiner func() intermediate.Combiner) Option {
	return func(mr *MapReduce) { mr.newCombiner = newCombiner }
}

// WithPartitioner overrides the default murmur3 hash partitioner used to
// route mapped keys to reducers.
func WithPartitioner(fn intermediate.PartitionFunc) Option {
	return func(mr *MapReduce) { mr.partitioner = fn }
}

// WithStoreOptions passes extra intermediate.StoreOption values through to
// every Store this run creates (its own and every mapper's).
func WithStoreOptions(opts ...intermediate.StoreOption) Option {
	return func(mr *MapReduce) { mr.storeOpts = append(mr.storeOpts, opts...) }
}

// WithJobHistory records this run's start/end time and stats to ledger
// under jobName once the reduce phase finishes.
func WithJobHistory(ledger *jobhistory.Ledger, jobName string) Option {
	return func(mr *MapReduce) {
		mr.history = ledger
		mr.jobName = jobName
	}
}

// New builds a MapReduce with mapperCount mappers and reducerCount
// reducers/partitions.
func New(mapperCount, reducerCount int, mapFn MapFunc, reduceFn ReduceFunc, opts ...Option) *MapReduce {
	mr := &MapReduce{
		mapFn:        mapFn,
		mapperCount:  mapperCount,
		reduceFn:     reduceFn,
		reducerCount: reducerCount,
		newCombiner:  func() intermediate.Combiner { return intermediate.NullCombiner },
	}
	for _, opt := range opts {
		opt(mr)
	}
	return mr
}

func (mr *MapReduce) newStore() *intermediate.Store {
	opts := append([]intermediate.StoreOption(nil), mr.storeOpts...)
	if mr.partitioner != nil {
		opts = append(opts, intermediate.WithPartitioner(mr.partitioner))
	}
	return intermediate.New(mr.reducerCount, opts...)
}

// Run blocks until every record of in has been routed to a mapper, then
// returns a channel of reduced (key, values) pairs. The caller must drain
// the channel to completion for the run's resources to be released.
func (mr *MapReduce) Run(ctx context.Context, in <-chan KeyVal) (<-chan KeyVals, error) {
	out := make(chan KeyVals)

	startedAt := time.Now()
	inTrans := newTransport[KeyVal](1, mr.mapperCount)
	aggregate := mr.newStore()
	var mergeMu sync.Mutex

	var mapWg sync.WaitGroup
	mapWg.Add(mr.mapperCount)
	for id := range mr.mapperCount {
		go func(id int) {
			defer mapWg.Done()
			runMapper(ctx, mr.mapFn, mr.newCombiner(), mr.newStore(), id, inTrans, aggregate, &mergeMu)
		}(id)
	}

	// map phase
loop:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case kv, open := <-in:
			if !open {
				break loop
			}

			id := rand.Intn(mr.mapperCount)
			inTrans.Send(ctx, id, kv)
		}
	}
	inTrans.Close() // signals every mapper to combine and merge into aggregate

	go func() {
		mapWg.Wait()
		mr.runReducePhase(ctx, aggregate, out, startedAt)
	}()

	return out, nil
}

func (mr *MapReduce) runReducePhase(ctx context.Context, aggregate *intermediate.Store, out chan<- KeyVals, startedAt time.Time) {
	defer close(out)
	defer aggregate.Close(ctx)

	var reduceWg sync.WaitGroup
	var storeMu sync.Mutex
	reduceWg.Add(mr.reducerCount)
	for part := range mr.reducerCount {
		go func(part int) {
			defer reduceWg.Done()
			runReducer(ctx, aggregate, &storeMu, mr.reduceFn, part, out)
		}(part)
	}
	reduceWg.Wait()

	if mr.history != nil {
		run := jobhistory.Run{
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			MapIn:      GlobalStats.MapIn.Load(),
			MapOut:     GlobalStats.MapOut.Load(),
			ReduceIn:   GlobalStats.ReduceIn.Load(),
			ReduceOut:  GlobalStats.ReduceOut.Load(),
		}
		if err := mr.history.Record(mr.jobName, run); err != nil {
			slog.Error("mapreduce: record job history failed", "job", mr.jobName, "error", err)
		}
	}
}
