// Package transport carries already-grouped batch requests over a
// bidirectional framed channel.
//
// The adapter does no grouping, no retries and no cancellation of its
// own: it serializes one request, demultiplexes the tagged response
// stream back into positional results and treats the sentinel frame as
// "no more responses, complete the call". At most one request is in
// flight per channel instance.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/getong/rspc/internal/wire"
)

var (
	// ErrCallInFlight is returned when a Call is issued while another
	// one has not completed. Callers must serialize their calls.
	ErrCallInFlight = errors.New("transport: a call is already in flight")

	// ErrClosed is returned once the channel's connection is gone.
	ErrClosed = errors.New("transport: channel closed")
)

// Conn is the host-provided bidirectional connection a Channel drives.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// call is the single in-flight request and the stream routed to it.
type call struct {
	id     int64
	frames chan *wire.Frame
}

// Channel owns one connection and serializes batch requests onto it.
type Channel struct {
	conn   Conn
	logger zerolog.Logger

	writeMu sync.Mutex
	reqID   int64

	mu       sync.Mutex
	inflight *call
	closed   bool

	done chan struct{}
}

// NewChannel wraps an established connection and starts its read loop.
func NewChannel(conn Conn, logger zerolog.Logger) *Channel {
	c := &Channel{
		conn:   conn,
		logger: logger.With().Str("component", "transport").Logger(),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Call sends one batch of queries and blocks until the response stream's
// sentinel arrives. Results are positional: results[i] answers
// queries[i]. A done ctx abandons the wait without touching the
// connection; the stream is still drained by the read loop.
func (c *Channel) Call(ctx context.Context, queries []wire.Query) ([]wire.Result, error) {
	req := wire.NewRequest(atomic.AddInt64(&c.reqID, 1), queries)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch request: %w", err)
	}
	data, err := req.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	cl := &call{id: req.ID, frames: make(chan *wire.Frame, len(queries)+1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.inflight != nil {
		c.mu.Unlock()
		return nil, ErrCallInFlight
	}
	c.inflight = cl
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.inflight == cl {
			c.inflight = nil
		}
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if writeErr != nil {
		return nil, fmt.Errorf("failed to send request: %w", writeErr)
	}

	c.logger.Debug().Int64("id", req.ID).Int("queries", len(queries)).Msg("batch request sent")

	results := make([]wire.Result, len(queries))
	seen := make([]bool, len(queries))
	for {
		select {
		case f, ok := <-cl.frames:
			if !ok {
				return nil, ErrClosed
			}
			if f.Done {
				for i := range results {
					if !seen[i] {
						results[i] = wire.Result{
							Status: wire.StatusInternal,
							Body:   nil,
						}
					}
				}
				return results, nil
			}
			if f.Index < 0 || f.Index >= len(results) {
				c.logger.Warn().Int64("id", f.ID).Int("index", f.Index).Msg("frame index out of range, dropping")
				continue
			}
			results[f.Index] = wire.Result{Status: f.Status, Body: f.Body}
			seen[f.Index] = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// readLoop routes incoming frames to the in-flight call until the
// connection dies.
func (c *Channel) readLoop() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			cl := c.inflight
			c.inflight = nil
			c.closed = true
			c.mu.Unlock()

			if cl != nil {
				close(cl.frames)
			}
			if !wasClosed {
				c.logger.Debug().Err(err).Msg("connection lost")
			}
			return
		}

		f, err := wire.ParseFrame(data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("frame parse error")
			continue
		}

		// The send happens under mu so a concurrent Close cannot close
		// the frames channel out from under it. The send itself never
		// blocks.
		c.mu.Lock()
		cl := c.inflight
		if cl == nil || cl.id != f.ID {
			c.mu.Unlock()
			c.logger.Debug().Int64("id", f.ID).Msg("frame for no in-flight call, dropping")
			continue
		}
		select {
		case cl.frames <- f:
		default:
			c.logger.Warn().Int64("id", f.ID).Msg("frame queue full, dropping frame")
		}
		c.mu.Unlock()
	}
}

// Close tears down the connection. An in-flight call fails with
// ErrClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cl := c.inflight
	c.inflight = nil
	c.mu.Unlock()

	if cl != nil {
		close(cl.frames)
	}
	err := c.conn.Close()
	<-c.done
	return err
}
