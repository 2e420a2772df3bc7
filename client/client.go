// Package client is a batching remote-call client: individual Query
// calls issued within one scheduling window are coalesced into batched
// requests on a single framed channel, and results are fanned back out
// to the original callers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/getong/rspc/internal/transport"
	"github.com/getong/rspc/internal/wire"
	"github.com/getong/rspc/loader"
)

// Config configures a Client.
type Config struct {
	// URL of the websocket endpoint.
	URL string

	// MaxBatchSize caps the number of queries per batch. 0 means no cap.
	MaxBatchSize int

	// MaxPayloadBytes caps the summed encoded size of the queries in one
	// batch. 0 means no cap. A single query over the cap fails with
	// loader.ErrOversizedInput without ever hitting the wire.
	MaxPayloadBytes int

	// Window is the coalescing window handed to the loader.
	Window time.Duration

	Logger zerolog.Logger
}

// caller performs one batched call. *transport.Channel satisfies it.
type caller interface {
	Call(ctx context.Context, queries []wire.Query) ([]wire.Result, error)
}

// Client coalesces queries onto one channel.
type Client struct {
	ch     caller
	close  func() error
	logger zerolog.Logger

	// The channel accepts one in-flight call; batches serialize here.
	callMu sync.Mutex

	loader *loader.Loader[wire.Query, wire.Result]
}

// New dials cfg.URL and returns a connected client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("client: URL is required")
	}
	ch, err := transport.Dial(ctx, cfg.URL, cfg.Logger)
	if err != nil {
		return nil, err
	}
	c, err := newClient(ch, cfg)
	if err != nil {
		ch.Close()
		return nil, err
	}
	c.close = ch.Close
	return c, nil
}

func newClient(ch caller, cfg Config) (*Client, error) {
	c := &Client{
		ch:     ch,
		logger: cfg.Logger.With().Str("component", "client").Logger(),
	}

	l, err := loader.New(loader.Config[wire.Query, wire.Result]{
		Validate: batchValidator(cfg.MaxBatchSize, cfg.MaxPayloadBytes),
		Fetch:    c.fetchBatch,
		Window:   cfg.Window,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	c.loader = l
	return c, nil
}

// batchValidator builds the batch validity predicate from the configured
// limits. Nil when unbounded.
func batchValidator(maxSize, maxBytes int) func([]wire.Query) bool {
	if maxSize <= 0 && maxBytes <= 0 {
		return nil
	}
	return func(queries []wire.Query) bool {
		if maxSize > 0 && len(queries) > maxSize {
			return false
		}
		if maxBytes > 0 {
			total := 0
			for _, q := range queries {
				total += q.Size()
			}
			if total > maxBytes {
				return false
			}
		}
		return true
	}
}

// fetchBatch resolves one batch over the channel. Batches dispatched
// concurrently by the loader serialize here to honor the channel's
// one-in-flight contract.
func (c *Client) fetchBatch(ctx context.Context, queries []wire.Query) ([]wire.Result, error) {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	return c.ch.Call(ctx, queries)
}

// Go issues one query without blocking. The call joins the current
// scheduling window's batch.
func (c *Client) Go(path string, input interface{}) (*Call, error) {
	if path == "" {
		return nil, errors.New("client: path is required")
	}
	var raw json.RawMessage
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("client: failed to marshal input: %w", err)
		}
		raw = data
	}
	return &Call{item: c.loader.Load(wire.Query{Path: path, Input: raw})}, nil
}

// Query issues one query and waits for its result, decoding the body
// into out (ignored when out is nil).
func (c *Client) Query(ctx context.Context, path string, input, out interface{}) error {
	call, err := c.Go(path, input)
	if err != nil {
		return err
	}
	return call.Wait(ctx, out)
}

// Close tears down the underlying channel.
func (c *Client) Close() error {
	if c.close != nil {
		return c.close()
	}
	return nil
}

// Call is one in-flight query.
type Call struct {
	item *loader.Item[wire.Query, wire.Result]
}

// Wait blocks until the query settles or ctx is done, then decodes the
// result body into out (ignored when out is nil). A non-OK per-key
// status is returned as *Error.
func (call *Call) Wait(ctx context.Context, out interface{}) error {
	res, err := call.item.Wait(ctx)
	if err != nil {
		return err
	}
	if werr := res.Err(); werr != nil {
		return &Error{Status: werr.Status, Message: werr.Message, Data: werr.Data}
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

// Cancel marks the query as aborted; see loader.Item.Cancel for the
// batch-level semantics.
func (call *Call) Cancel() {
	call.item.Cancel()
}

// Error is a non-OK per-key resolution delivered by the remote end.
type Error struct {
	Status  int
	Message string
	Data    json.RawMessage
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: status %d", e.Status)
	}
	return fmt.Sprintf("client: status %d: %s", e.Status, e.Message)
}
