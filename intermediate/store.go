package intermediate

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/golangplus/errors"

	"github.com/sdmiller/mapreduce/pkg/caller"
	"github.com/sdmiller/mapreduce/pkg/tracer"
)

// PartitionFunc routes a key into one of P partitions. It must be pure and
// deterministic so MergeFrom across workers routes identical keys into
// identical partition indices (spec.md §6).
type PartitionFunc func(key string, numPartitions int) int

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithLogger routes the Store's debug-only progress messages (spec.md §9's
// "treat this as debug-only and route through an injected logger") through
// logger instead of slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithTempDir places this Store's spill, fragment, and merge files under
// dir instead of the OS default temp directory.
func WithTempDir(dir string) StoreOption {
	return func(s *Store) { s.tempProvider = defaultTempPathProvider(dir) }
}

// WithMergeFanIn overrides DefaultMergeFanIn for this Store's Fragment
// Merger.
func WithMergeFanIn(fanIn int) StoreOption {
	return func(s *Store) { s.mergeFanIn = fanIn }
}

// WithPartitioner overrides the default murmur3 hash partitioner.
func WithPartitioner(fn PartitionFunc) StoreOption {
	return func(s *Store) { s.partitioner = fn }
}

// WithSortFunc overrides the default External Sorter.
func WithSortFunc(fn SortFunc) StoreOption {
	return func(s *Store) { s.sortFn = fn }
}

// Store is the top-level intermediate-results container from spec.md §4.5:
// it owns one partitionWriter per partition index, routes inserts through a
// partitioner, and exposes the combine/merge-from/shuffle/reduce/iterate
// operations reduce workers and the outer driver need.
//
// A Store is not safe for concurrent use; see package doc.
type Store struct {
	numPartitions int
	writers       map[int]*partitionWriter

	partitioner  PartitionFunc
	sortFn       SortFunc
	mergeFanIn   int
	tempProvider TempPathProvider
	logger       *slog.Logger

	closed bool
}

// New creates a Store fixed at numPartitions partitions (P >= 1).
func New(numPartitions int, opts ...StoreOption) *Store {
	if numPartitions < 1 {
		invariantViolation("numPartitions must be >= 1, got %d", numPartitions)
	}
	s := &Store{
		numPartitions: numPartitions,
		writers:       make(map[int]*partitionWriter),
		partitioner:   murmur3Partitioner,
		mergeFanIn:    DefaultMergeFanIn,
		tempProvider:  defaultTempPathProvider(""),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sortFn == nil {
		s.sortFn = defaultSort
	}
	return s
}

func (s *Store) mergeFn() MergeFunc {
	return defaultMerge(s.tempProvider, s.mergeFanIn)
}

// writerFor returns the partition's writer, lazily creating it (and
// allocating its spill path) on first use, and reopening its stream at that
// same path whenever it has been closed — which is how a combiner's Finish
// callback can insert back into a partition mid-sweep (spec.md §4.5): the
// path string survives the close, so reopening recreates the file there,
// the same trick the original's insert() relies on.
func (s *Store) writerFor(ctx context.Context, part int) (*partitionWriter, error) {
	w, ok := s.writers[part]
	if !ok {
		w = newPartitionWriter()
		s.writers[part] = w
	}
	if w.filename == "" {
		path, err := s.tempProvider()
		if err != nil {
			return nil, err
		}
		w.filename = path
	}
	if !w.isOpen() {
		if err := w.open(w.filename); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// writerEntry returns the partition's writer, lazily creating a bare (unopened)
// one if it doesn't exist yet. Unlike writerFor, it never allocates a spill
// path or opens a file — MergeFrom only ever appends to a writer's fragment
// list, so the receiver side doesn't need a spill file of its own until
// something actually inserts into that partition directly.
func (s *Store) writerEntry(part int) *partitionWriter {
	w, ok := s.writers[part]
	if !ok {
		w = newPartitionWriter()
		s.writers[part] = w
	}
	return w
}

// Insert routes (key, value) to partitioner(key, P), lazily creating the
// writer and spill file, and buffers it via the writer's coalescing cache.
// It reports whether the underlying write path succeeded.
func (s *Store) Insert(ctx context.Context, key, value string) (bool, error) {
	ctx, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	if s.closed {
		invariantViolation("Insert called on a closed Store")
	}

	part := s.partitioner(key, s.numPartitions)
	w, err := s.writerFor(ctx, part)
	if err != nil {
		return false, err
	}
	if err := w.write(Record{Key: key, Value: value}); err != nil {
		return false, err
	}
	return true, nil
}

// InsertWithSink does what Insert does, and additionally invokes
// sink.Insert(key, value) — used when the engine is asked to emit directly
// while still recording (spec.md §4.5).
func (s *Store) InsertWithSink(ctx context.Context, key, value string, sink ResultSink) (bool, error) {
	if err := sink.Insert(key, value); err != nil {
		return false, err
	}
	return s.Insert(ctx, key, value)
}

// MergeFrom transfers ownership of other's sorted fragments into s. For
// each partition present in other: other's writer is closed; if it was
// still sorted, its current file is stolen as a new fragment of s,
// otherwise the External Sorter runs on it first. other's filename is
// cleared either way, so it no longer deletes the files it handed over
// (spec.md §4.5, §3's "Ownership").
func (s *Store) MergeFrom(ctx context.Context, other *Store) error {
	ctx, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	if s.numPartitions != other.numPartitions {
		invariantViolation("MergeFrom: partition count mismatch (%d != %d)", s.numPartitions, other.numPartitions)
	}

	for part, otherWriter := range other.writers {
		if err := otherWriter.close(); err != nil {
			return err
		}
		if otherWriter.filename == "" {
			continue
		}
		if len(otherWriter.fragments) != 0 {
			invariantViolation("MergeFrom: peer partition %d already has unshuffled fragments", part)
		}

		receiver := s.writerEntry(part)

		fragment := otherWriter.filename
		if !otherWriter.sorted {
			sortedPath, err := s.tempProvider()
			if err != nil {
				return err
			}
			if err := s.sortFn(fragment, sortedPath); err != nil {
				return err
			}
			if err := removeIfExists(fragment); err != nil {
				return err
			}
			fragment = sortedPath
		}
		receiver.fragments = append(receiver.fragments, fragment)
		otherWriter.filename = ""
	}
	return nil
}

// Shuffle collapses partition p's fragments into a single sorted file via
// the Fragment Merger (run_intermediate_results_shuffle, spec.md §4.5). It
// is a no-op if the partition has no fragments, since the writer's own
// current file is already sorted in that case.
func (s *Store) Shuffle(ctx context.Context, part int) error {
	ctx, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	w, ok := s.writers[part]
	if !ok {
		invariantViolation("Shuffle: unknown partition %d", part)
	}
	if err := w.close(); err != nil {
		return err
	}
	if len(w.fragments) == 0 {
		return nil
	}

	s.logger.DebugContext(ctx, "intermediate: shuffle", "partition", part, "fragments", len(w.fragments))

	dest, err := s.tempProvider()
	if err != nil {
		return err
	}
	if err := s.mergeFn()(w.fragments, dest); err != nil {
		return err
	}
	w.filename = dest
	w.fragments = nil
	w.sorted = true
	return nil
}

// Combine sweeps every partition's sorted file, groups consecutive equal
// keys, and drives combiner.Start/Add/Finish over each group, per the
// combine-time grouping algorithm in spec.md §4.5. Passing NullCombiner
// takes the original's fast path and only closes writers.
func (s *Store) Combine(ctx context.Context, combiner Combiner) error {
	ctx, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	if isNullCombiner(combiner) {
		for _, w := range s.writers {
			if err := w.close(); err != nil {
				return err
			}
		}
		return nil
	}

	for part, w := range s.writers {
		if err := w.close(); err != nil {
			return err
		}
		if w.filename == "" {
			continue
		}

		sortedPath, err := s.tempProvider()
		if err != nil {
			return err
		}
		if err := s.sortFn(w.filename, sortedPath); err != nil {
			return err
		}
		if err := removeIfExists(w.filename); err != nil {
			return err
		}

		s.logger.DebugContext(ctx, "intermediate: combine", "partition", part)

		if err := s.combineSweep(ctx, sortedPath, combiner); err != nil {
			return err
		}
		if err := removeIfExists(sortedPath); err != nil {
			return err
		}
	}

	for _, w := range s.writers {
		if err := w.close(); err != nil {
			return err
		}
	}
	return nil
}

// combineSweep reads sortedPath's records in order and feeds them through
// combiner, flushing a group via Finish whenever the key changes (and at
// EOF), exactly as the original's combine loop does — including feeding
// the value that triggered a new group to Add, not just subsequent values.
func (s *Store) combineSweep(ctx context.Context, sortedPath string, combiner Combiner) error {
	f, err := os.Open(sortedPath)
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "open sorted file %q for combine failed", sortedPath)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var lastKey string
	for {
		rec, ok, err := decodeRecord(r)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if rec.Key != lastKey && rec.Key != "" {
			if lastKey != "" {
				combiner.Finish(lastKey, storeInserter{ctx: ctx, store: s})
			}
			combiner.Start(rec.Key)
			lastKey = rec.Key
		}
		combiner.Add(rec.Value)
	}
	if lastKey != "" {
		combiner.Finish(lastKey, storeInserter{ctx: ctx, store: s})
	}
	return nil
}

// storeInserter adapts a Store + bound context to the Inserter interface a
// Combiner's Finish callback receives.
type storeInserter struct {
	ctx   context.Context
	store *Store
}

func (i storeInserter) Insert(key, value string) (bool, error) {
	return i.store.Insert(i.ctx, key, value)
}

// ReduceCallback is invoked exactly once per distinct non-empty key, with
// every value inserted under that key in the partition (spec.md §6).
type ReduceCallback func(key string, values []string) error

// Reduce closes and removes the writer for part, sweeps its sorted file,
// groups consecutive equal keys, and invokes cb once per group. The
// zero-length-key sentinel suppresses a group entirely — it is never
// surfaced to cb. The partition's file is deleted once consumed.
func (s *Store) Reduce(ctx context.Context, part int, cb ReduceCallback) error {
	ctx, span := tracer.Start(ctx, caller.Name())
	defer span.End()

	w, ok := s.writers[part]
	if !ok {
		invariantViolation("Reduce: unknown partition %d", part)
	}

	filename := w.filename
	w.filename = ""
	if err := w.close(); err != nil {
		return err
	}
	delete(s.writers, part)

	s.logger.DebugContext(ctx, "intermediate: reduce", "partition", part)

	if filename == "" {
		return nil
	}
	defer removeIfExists(filename)

	f, err := os.Open(filename)
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "open sorted file %q for reduce failed", filename)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var lastKey string
	var values []string
	for {
		rec, ok, err := decodeRecord(r)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if rec.Key != lastKey && rec.Key != "" {
			if lastKey != "" {
				if err := cb(lastKey, values); err != nil {
					return err
				}
				values = nil
			}
			lastKey = rec.Key
		}
		values = append(values, rec.Value)
	}
	if lastKey != "" {
		if err := cb(lastKey, values); err != nil {
			return err
		}
	}
	return nil
}

// Close deletes every temp file this Store owns (current spill files and
// pending fragments, across all writers). Errors are logged and swallowed,
// matching spec.md §3's "Destruction must not raise."
func (s *Store) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true
	for part, w := range s.writers {
		if err := w.close(); err != nil {
			s.logger.WarnContext(ctx, "intermediate: close writer on teardown failed", "partition", part, "error", err)
		}
		if err := removeIfExists(w.filename); err != nil {
			s.logger.WarnContext(ctx, "intermediate: delete spill file on teardown failed", "partition", part, "error", err)
		}
		for _, frag := range w.fragments {
			if err := removeIfExists(frag); err != nil {
				s.logger.WarnContext(ctx, "intermediate: delete fragment on teardown failed", "partition", part, "error", err)
			}
		}
	}
	s.writers = nil
}
