package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWindow is the scheduling window used when Config.Window is unset.
const DefaultWindow = time.Millisecond

// Config carries the capabilities a Loader is built from.
type Config[K, V any] struct {
	// Validate reports whether keys form a valid batch. It must be pure
	// and must accept a batch of one for any key that can ever succeed
	// alone. Nil means every batch is valid. It is called with an
	// incrementally growing candidate list while grouping, which is
	// quadratic in the worst case; fine for the intended batch sizes.
	Validate func(keys []K) bool

	// Fetch resolves one batch. The returned slice must have the same
	// length and order as keys. The ctx is cancelled once every lookup
	// in the batch has been cancelled; Fetch should treat that as a
	// best-effort abort. Required.
	Fetch func(ctx context.Context, keys []K) ([]V, error)

	// Window is how long a flush waits for further Load calls before
	// dispatching. Lookups issued within one window are batched
	// together. Defaults to DefaultWindow.
	Window time.Duration

	// Logger for debug output. The zero value is silent.
	Logger zerolog.Logger
}

// Loader coalesces Load calls into batched fetches. A Loader owns its
// pending queue exclusively; it holds no background resources between
// flushes.
type Loader[K, V any] struct {
	validate func(keys []K) bool
	fetch    func(ctx context.Context, keys []K) ([]V, error)
	window   time.Duration
	logger   zerolog.Logger

	mu             sync.Mutex
	pending        []*Item[K, V]
	flushScheduled bool
}

// New creates a Loader from cfg.
func New[K, V any](cfg Config[K, V]) (*Loader[K, V], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("loader: Fetch is required")
	}

	validate := cfg.Validate
	if validate == nil {
		validate = func([]K) bool { return true }
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	return &Loader[K, V]{
		validate: validate,
		fetch:    cfg.Fetch,
		window:   window,
		logger:   cfg.Logger.With().Str("component", "loader").Logger(),
	}, nil
}

// Load requests the value for key. It never blocks: the lookup is
// appended to the pending queue and a flush is scheduled for the end of
// the current window unless one is already pending, so a burst of Load
// calls is captured by a single flush.
func (l *Loader[K, V]) Load(key K) *Item[K, V] {
	it := &Item[K, V]{
		key:    key,
		loader: l,
		done:   make(chan struct{}),
	}

	l.mu.Lock()
	l.pending = append(l.pending, it)
	if !l.flushScheduled {
		l.flushScheduled = true
		time.AfterFunc(l.window, l.flush)
	}
	l.mu.Unlock()

	return it
}

// flush snapshots and clears the pending queue, groups the snapshot and
// dispatches one fetch per group. Lookups issued while a flush runs land
// on a fresh queue with a fresh window; no two flushes interleave because
// grouping and batch linking happen under the loader mutex.
func (l *Loader[K, V]) flush() {
	l.mu.Lock()
	items := l.pending
	l.pending = nil
	l.flushScheduled = false
	if len(items) == 0 {
		l.mu.Unlock()
		return
	}

	groups := l.groupLocked(items)

	batches := make([]*batch[K, V], 0, len(groups))
	ctxs := make([]context.Context, 0, len(groups))
	keySets := make([][]K, 0, len(groups))
	for _, g := range groups {
		ctx, cancel := context.WithCancel(context.Background())
		b := &batch[K, V]{items: g.items, cancel: cancel}
		for _, it := range g.items {
			it.batch = b
		}
		batches = append(batches, b)
		ctxs = append(ctxs, ctx)
		keySets = append(keySets, g.keys)
	}
	l.mu.Unlock()

	l.logger.Debug().
		Int("items", len(items)).
		Int("batches", len(batches)).
		Msg("flushing pending lookups")

	for i, b := range batches {
		go l.run(ctxs[i], b, keySets[i])
	}
}

// run performs one batch fetch and settles every member positionally.
// Fetch is invoked exactly once per batch and never retried here.
func (l *Loader[K, V]) run(ctx context.Context, b *batch[K, V], keys []K) {
	values, err := l.fetch(ctx, keys)
	if err == nil && len(values) != len(keys) {
		err = fmt.Errorf("%w: fetch returned %d results for %d keys", ErrInvariant, len(values), len(keys))
	}

	l.mu.Lock()
	for i, it := range b.items {
		it.batch = nil
		if err != nil {
			it.rejectLocked(err)
		} else {
			it.resolveLocked(values[i])
		}
	}
	released := b.cancelled
	b.cancelled = true
	l.mu.Unlock()

	if !released {
		// Release the batch context; the fetch has already returned.
		b.cancel()
	}

	if err != nil {
		l.logger.Debug().Err(err).Int("size", len(b.items)).Msg("batch fetch failed")
	}
}
