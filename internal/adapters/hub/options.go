package hub

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/pkg/logger"
)

// Option configures a Hub.
type Option func(*Hub)

// WithSendBuffer sets how many pending frames a connection may hold before it is dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithWriteTimeout bounds every frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping period. It should be shorter than the read timeout.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithReadTimeout sets how long a connection may stay silent (no pong, no frame).
func WithReadTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.readTimeout = d
		}
	}
}

// WithMaxMessageSize caps inbound frame size.
func WithMaxMessageSize(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}

// WithClock sets the time source for envelopes, pings and deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(h *Hub) {
		if c != nil {
			h.clock = c
		}
	}
}

// WithIDGenerator overrides envelope and connection id generation.
func WithIDGenerator(gen func() string) Option {
	return func(h *Hub) {
		if gen != nil {
			h.newID = gen
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
