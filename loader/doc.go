// Package loader coalesces individual key lookups into batched fetches.
//
// Concurrent Load calls issued within one scheduling window are grouped
// into batches by a caller-supplied validity predicate, fetched once per
// batch, and fanned back out to the original callers positionally.
// Each pending lookup can be cancelled; a dispatched batch's fetch is only
// told to stop once every member has been cancelled.
//
// The loader does no caching, no deduplication and no retries. Those
// concerns, if wanted, belong to the supplied Fetch function.
package loader
