package intermediate

import "log"

// invariantViolation panics the way spec.md §7 requires for invariant
// violations (differing partition counts in MergeFrom, Reduce on an unknown
// partition, inserting into a torn-down Store): these are programmer errors
// in the surrounding driver, not recoverable I/O failures, so they are
// reported as a fatal assertion rather than a returned error — the same
// idiom the teacher uses in transport.go (log.Panicf("no peer for id %d")).
func invariantViolation(format string, args ...any) {
	log.Panicf("intermediate: invariant violation: "+format, args...)
}
