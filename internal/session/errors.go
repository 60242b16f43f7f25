package session

import "errors"

var (
	// ErrExhaustedRetries is reported when automatic reconnection gives up.
	// Already loaded data stays usable and Reconnect starts over.
	ErrExhaustedRetries = errors.New("session: live updates unavailable, reconnect attempts exhausted")
	// ErrHandshakeTimeout is reported when a dial does not complete in time.
	ErrHandshakeTimeout = errors.New("session: handshake timed out")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session: closed")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("session: already started")
	// ErrMalformedEvent marks an inbound frame that is not a valid event.
	ErrMalformedEvent = errors.New("session: malformed event")
)
