package mapreduce

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sdmiller/mapreduce/intermediate"
)

// runMapper drains in for records addressed to id, maps each one, and
// inserts every output pair into its own store. Once in is closed it
// combines that store and merges it into aggregate under mergeMu, since a
// Store is not safe for concurrent use.
func runMapper(
	ctx context.Context,
	mapFn MapFunc,
	combiner intermediate.Combiner,
	store *intermediate.Store,
	id int,
	in transport[KeyVal],
	aggregate *intermediate.Store,
	mergeMu *sync.Mutex,
) {
	for {
		slog.Info("mapper: receiving...", "id", id)
		kv, open := in.Recv(ctx, id)
		if !open {
			slog.Info("mapper: transport closed, combining", "id", id)
			break
		}
		GlobalStats.MapIn.Add(1)
		slog.Info("mapper: got input", "id", id)

		for _, out := range mapFn(ctx, kv.Key, kv.Val) {
			if _, err := store.Insert(ctx, out.Key, out.Val); err != nil {
				slog.Error("mapper: insert failed", "id", id, "key", out.Key, "error", err)
				continue
			}
			GlobalStats.MapOut.Add(1)
			slog.Info("mapper: inserted output", "id", id, "kv", out)
		}
	}

	if err := store.Combine(ctx, combiner); err != nil {
		slog.Error("mapper: combine failed", "id", id, "error", err)
	}

	mergeMu.Lock()
	err := aggregate.MergeFrom(ctx, store)
	mergeMu.Unlock()
	if err != nil {
		slog.Error("mapper: merge into aggregate failed", "id", id, "error", err)
	}

	store.Close(ctx)
}

// runReducer shuffles and reduces one partition of aggregate. The Store
// calls are serialized through storeMu; reduceFn itself runs outside the
// lock so slow user code doesn't block sibling partitions' shuffles.
func runReducer(
	ctx context.Context,
	aggregate *intermediate.Store,
	storeMu *sync.Mutex,
	reduceFn ReduceFunc,
	part int,
	out chan<- KeyVals,
) {
	slog.Info("reducer: shuffling", "partition", part)
	storeMu.Lock()
	err := aggregate.Shuffle(ctx, part)
	storeMu.Unlock()
	if err != nil {
		slog.Error("reducer: shuffle failed", "partition", part, "error", err)
		return
	}

	type group struct {
		key  string
		vals []string
	}
	var groups []group

	storeMu.Lock()
	err = aggregate.Reduce(ctx, part, func(key string, values []string) error {
		groups = append(groups, group{key: key, vals: append([]string(nil), values...)})
		return nil
	})
	storeMu.Unlock()
	if err != nil {
		slog.Error("reducer: reduce sweep failed", "partition", part, "error", err)
		return
	}

	for _, g := range groups {
		GlobalStats.ReduceIn.Add(uint64(len(g.vals)))
		slog.Info("reducer: reducing", "partition", part, "key", g.key)

		output := KeyVals{Key: g.key, Vals: reduceFn(ctx, g.key, g.vals)}

		select {
		case <-ctx.Done():
			return
		case out <- output:
		}
		GlobalStats.ReduceOut.Add(1)
		slog.Info("reducer: output sent", "partition", part, "output", output)
	}
}
