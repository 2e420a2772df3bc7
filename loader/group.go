package loader

// group is one candidate batch produced while partitioning a flush
// snapshot. keys mirrors items positionally so the validity predicate
// never has to re-walk the items.
type group[K, V any] struct {
	items []*Item[K, V]
	keys  []K
}

// groupLocked partitions items into valid batches. Single pass, greedy,
// order preserving, no backtracking: a key that closes a full batch is
// retried once against a fresh empty one, and a key that fails the
// predicate even alone settles with ErrOversizedInput right here, as does
// an already-aborted lookup with ErrAborted. The greedy policy is
// deliberate; a different ordering of the same keys could sometimes avoid
// an oversized rejection, but callers depend on this exact behavior.
//
// Caller holds l.mu.
func (l *Loader[K, V]) groupLocked(items []*Item[K, V]) []group[K, V] {
	groups := []group[K, V]{{}}

	for _, it := range items {
		if it.aborted {
			it.rejectLocked(ErrAborted)
			continue
		}

		cur := &groups[len(groups)-1]
		candidate := append(cur.keys[:len(cur.keys):len(cur.keys)], it.key)
		if l.validate(candidate) {
			cur.items = append(cur.items, it)
			cur.keys = candidate
			continue
		}

		if len(cur.items) == 0 {
			it.rejectLocked(ErrOversizedInput)
			continue
		}

		// Close the full batch and retry the same key against a fresh one.
		groups = append(groups, group[K, V]{})
		cur = &groups[len(groups)-1]
		candidate = []K{it.key}
		if !l.validate(candidate) {
			it.rejectLocked(ErrOversizedInput)
			continue
		}
		cur.items = append(cur.items, it)
		cur.keys = candidate
	}

	if n := len(groups); len(groups[n-1].items) == 0 {
		groups = groups[:n-1]
	}
	return groups
}
