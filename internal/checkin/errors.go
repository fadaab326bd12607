package checkin

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a check-in carries neither a phone nor a handle
var ErrInvalidRequest = errors.New("invalid request")

// StoreError is an error reported by the backing store itself: an error
// payload, an unexpected status or a body that could not be decoded.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("store %s: %s", e.Op, msg)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TransportError is a failure to reach the backing store
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsInvalidRequest reports whether err should be surfaced as a client error
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
