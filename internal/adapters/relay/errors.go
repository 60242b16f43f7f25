package relay

import "errors"

var (
	// ErrConnect is returned when the message bus cannot be reached.
	ErrConnect = errors.New("relay: connect")
	// ErrPublish is returned when a message cannot be sent.
	ErrPublish = errors.New("relay: publish")
	// ErrSubscribed is returned by a second Subscribe call.
	ErrSubscribed = errors.New("relay: already subscribed")
)
