package mapreduce

import "context"

// MapFunc transforms one input record into zero or more intermediate
// (key, value) pairs.
type MapFunc func(ctx context.Context, key string, value string) []KeyVal

// ReduceFunc folds every value recorded under one key into the final
// output values for that key.
type ReduceFunc func(ctx context.Context, key string, values []string) []string

// KeyVal is one (key, value) pair, the unit mappers emit and the engine
// routes between phases.
type KeyVal struct {
	Key string
	Val string
}

// KeyVals is one reduced key and its final output values.
type KeyVals struct {
	Key  string
	Vals []string
}
