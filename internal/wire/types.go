package wire

import (
	"encoding/json"
	"fmt"
)

// Status codes carried on response frames. HTTP-flavoured.
const (
	StatusOK              = 200
	StatusBadRequest      = 400
	StatusNotFound        = 404
	StatusTimeout         = 408
	StatusPayloadTooLarge = 413
	StatusInternal        = 500
)

// Error is a non-OK per-key resolution.
type Error struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewError creates an Error with the given status and message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wire: status %d", e.Status)
	}
	return fmt.Sprintf("wire: status %d: %s", e.Status, e.Message)
}
