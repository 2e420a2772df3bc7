package loader

import "context"

// Item is one pending key lookup and its eventual resolution. It is
// created by Load and settled exactly once by the dispatcher.
type Item[K, V any] struct {
	key    K
	loader *Loader[K, V]

	// The fields below are guarded by the owning loader's mutex.
	aborted bool
	settled bool
	batch   *batch[K, V]

	// value and err are written before done is closed and must only be
	// read after it.
	value V
	err   error
	done  chan struct{}
}

// batch is one dispatched group of items sharing a single fetch
// invocation. Its item list is fixed at creation and never empty; cancel
// aborts the fetch's context and is invoked at most once.
type batch[K, V any] struct {
	items     []*Item[K, V]
	cancel    context.CancelFunc
	cancelled bool
}

// Key returns the key this lookup was issued for.
func (it *Item[K, V]) Key() K {
	return it.key
}

// Done is closed once the lookup has settled.
func (it *Item[K, V]) Done() <-chan struct{} {
	return it.done
}

// Wait blocks until the lookup settles or ctx is done. Waiting with a
// cancelled ctx does not abort the lookup itself; use Cancel for that.
func (it *Item[K, V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-it.done:
		return it.value, it.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Cancel marks the lookup as aborted. A lookup aborted before it is
// grouped settles with ErrAborted at flush time. A lookup aborted while
// its batch is in flight keeps waiting for the batch to settle; only once
// every member of the batch has been aborted is the batch's fetch told to
// stop, exactly once. Cancelling a settled lookup is a no-op.
func (it *Item[K, V]) Cancel() {
	l := it.loader

	l.mu.Lock()
	if it.settled {
		l.mu.Unlock()
		return
	}
	it.aborted = true

	b := it.batch
	if b == nil || b.cancelled {
		l.mu.Unlock()
		return
	}
	for _, member := range b.items {
		if !member.aborted {
			l.mu.Unlock()
			return
		}
	}
	b.cancelled = true
	l.mu.Unlock()

	l.logger.Debug().Int("size", len(b.items)).Msg("all members aborted, cancelling batch fetch")
	b.cancel()
}

// resolveLocked settles the lookup with a value. Caller holds l.mu.
func (it *Item[K, V]) resolveLocked(v V) {
	if it.settled {
		panic("loader: lookup settled twice")
	}
	it.settled = true
	it.value = v
	close(it.done)
}

// rejectLocked settles the lookup with an error. Caller holds l.mu.
func (it *Item[K, V]) rejectLocked(err error) {
	if it.settled {
		panic("loader: lookup settled twice")
	}
	it.settled = true
	it.err = err
	close(it.done)
}
