package session

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/pkg/logger"
)

// Option configures a Session.
type Option func(*Session)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithClock sets the time source for retry delays.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHandshakeTimeout bounds a single dial.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

// WithBackoff overrides the reconnect policy.
func WithBackoff(initial, maxDelay time.Duration, multiplier float64, maxAttempts int) Option {
	return func(s *Session) {
		if initial > 0 {
			s.initialDelay = initial
		}
		if maxDelay > 0 {
			s.maxDelay = maxDelay
		}
		if multiplier >= 1 {
			s.multiplier = multiplier
		}
		if maxAttempts >= 0 {
			s.maxAttempts = maxAttempts
		}
	}
}

// OnEvent sets the callback for every well-formed inbound event.
func OnEvent(fn func(Event)) Option {
	return func(s *Session) {
		if fn != nil {
			s.onEvent = fn
		}
	}
}

// OnTransition sets the callback for state changes.
func OnTransition(fn func(Transition)) Option {
	return func(s *Session) {
		if fn != nil {
			s.onTransition = fn
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}
