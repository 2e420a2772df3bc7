// Package wire frames batched requests and their response streams.
//
// One Request carries an ordered set of queries; the channel answers with
// a stream of Frames, each tagged with the request ID, a position within
// the batch and a status code, terminated by a sentinel frame.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Query is one key of a batched call: a procedure path plus its input.
type Query struct {
	Path  string          `json:"path"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Size returns the encoded payload size of the query, used by
// byte-budget validity predicates.
func (q Query) Size() int {
	return len(q.Path) + len(q.Input)
}

// Request is one dispatched batch.
type Request struct {
	ID      int64   `json:"id"`
	Queries []Query `json:"queries"`
}

// NewRequest creates a batch request.
func NewRequest(id int64, queries []Query) *Request {
	return &Request{ID: id, Queries: queries}
}

// Validate checks the request is well formed.
func (r *Request) Validate() error {
	if len(r.Queries) == 0 {
		return errors.New("at least one query is required")
	}
	for i, q := range r.Queries {
		if q.Path == "" {
			return fmt.Errorf("query[%d]: path is required", i)
		}
	}
	return nil
}

// Bytes returns the request as JSON bytes.
func (r *Request) Bytes() ([]byte, error) {
	return json.Marshal(r)
}

// ParseRequest parses a batch request from bytes.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}
