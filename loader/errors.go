package loader

import "errors"

var (
	// ErrAborted settles a lookup that was cancelled before it was placed
	// in any batch. Only that lookup is affected.
	ErrAborted = errors.New("loader: lookup aborted")

	// ErrOversizedInput settles a lookup whose key fails the validity
	// predicate even as a batch of one. No fetch is attempted for it.
	ErrOversizedInput = errors.New("loader: key does not fit any batch")

	// ErrInvariant marks a broken contract between the loader and its
	// Fetch function, e.g. a result sequence whose length does not match
	// the key sequence. It signals a programming error, not a transient
	// fetch failure.
	ErrInvariant = errors.New("loader: invariant violation")
)
