package hub

import "errors"

var (
	// ErrEmptyIdentity is returned when registering without an identity.
	ErrEmptyIdentity = errors.New("hub: empty identity")
	// ErrNilTransport is returned when registering without a transport.
	ErrNilTransport = errors.New("hub: nil transport")
	// ErrClosed is returned when the hub no longer accepts connections.
	ErrClosed = errors.New("hub: closed")
	// ErrEncode is returned when an event payload cannot be serialised.
	ErrEncode = errors.New("hub: encode event")
)
