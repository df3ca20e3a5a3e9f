// Package intermediate implements the on-disk intermediate-results engine
// for a single-host MapReduce run: partitioning, spill-file framing, external
// sort, k-way fragment merge, an optional combiner sweep, and grouped reduce
// delivery.
//
// A Store is not safe for concurrent use. Callers that want to shuffle
// several workers' results together run one Store per worker and hand
// fragments to a receiver via MergeFrom, which is itself single-threaded —
// the same way the spec's outer driver is expected to serialize access.
package intermediate
