package wire

import (
	"encoding/json"
	"fmt"
)

// Frame is one tagged unit read off the channel: a positional result for
// the request identified by ID, or the sentinel (Done) that terminates
// the response stream for that request.
type Frame struct {
	ID     int64           `json:"id"`
	Index  int             `json:"index"`
	Status int             `json:"status,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Done   bool            `json:"done,omitempty"`
}

// NewResultFrame creates a frame carrying the result for one position of
// a batch.
func NewResultFrame(id int64, index, status int, body json.RawMessage) *Frame {
	return &Frame{ID: id, Index: index, Status: status, Body: body}
}

// NewDoneFrame creates the sentinel frame terminating a request's stream.
func NewDoneFrame(id int64) *Frame {
	return &Frame{ID: id, Done: true}
}

// Bytes returns the frame as JSON bytes.
func (f *Frame) Bytes() ([]byte, error) {
	return json.Marshal(f)
}

// ParseFrame parses a frame from bytes.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	return &f, nil
}

// Result is the per-key resolution a frame carries once demultiplexed.
type Result struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Err returns the error this result represents, or nil for StatusOK.
func (r Result) Err() *Error {
	if r.Status == StatusOK {
		return nil
	}
	e := &Error{Status: r.Status}
	if len(r.Body) > 0 {
		var parsed Error
		if err := json.Unmarshal(r.Body, &parsed); err == nil && parsed.Message != "" {
			e.Message = parsed.Message
			e.Data = parsed.Data
		} else {
			e.Message = string(r.Body)
		}
	}
	return e
}

// Decode unmarshals the result body into v. A missing body leaves v
// untouched.
func (r Result) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}
