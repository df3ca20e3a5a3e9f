package intermediate

// Inserter is the subset of Store a Combiner's Finish callback is allowed to
// call back into: re-inserting combined records (spec.md §4.5, §6).
type Inserter interface {
	Insert(key, value string) (bool, error)
}

// Combiner is the associative-reducer contract from spec.md §6. Start begins
// a new group for key, Add folds one value from the current group in, and
// Finish closes the group, optionally calling sink.Insert zero or more
// times to feed combined records back into the store.
type Combiner interface {
	Start(key string)
	Add(value string)
	Finish(key string, sink Inserter)
}

// nullCombiner is the sentinel recognized by Store.Combine: passing it short
// -circuits the whole sweep so Combine only closes writers, per spec.md
// §4.5 ("If the combiner is the explicit null combiner, the call is a
// no-op that only closes writers") — mirrored from the original's distinct
// `combine(mapreduce::null_combiner&)` overload.
type nullCombiner struct{}

func (nullCombiner) Start(string)            {}
func (nullCombiner) Add(string)              {}
func (nullCombiner) Finish(string, Inserter) {}

// NullCombiner is the Combiner that performs no combining at all.
var NullCombiner Combiner = nullCombiner{}

// isNullCombiner reports whether c is the explicit null combiner, checked
// by identity the same way the original dispatches to a distinct overload.
func isNullCombiner(c Combiner) bool {
	_, ok := c.(nullCombiner)
	return ok
}
