package relay

import "errors"

var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownIntent  = errors.New("unknown intent")
	ErrMissingRiderID = errors.New("ride has no riderId")
	ErrEmptyEvent     = errors.New("event name is required")
	ErrClientClosed   = errors.New("client connection is closed")
)
