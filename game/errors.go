package game

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEvent    = errors.New("unknown event")
	ErrMalformedEvent  = errors.New("malformed event payload")
	ErrUnexpectedEvent = errors.New("event not valid in current phase")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrDuplicateStart  = errors.New("game already started")
	ErrStaleEvent      = errors.New("stale or duplicate event")
)

// ProtocolError reports an inbound event the mirror could not apply. The
// event is discarded and the mirror is left as it was.
type ProtocolError struct {
	Event  string
	Err    error
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol error on %s: %v", e.Event, e.Err)
	}
	return fmt.Sprintf("protocol error on %s: %v (%s)", e.Event, e.Err, e.Detail)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolErr(event string, err error, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Event: event, Err: err, Detail: fmt.Sprintf(format, args...)}
}
