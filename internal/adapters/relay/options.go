package relay

import (
	"github.com/okian/livescore/internal/domain/dedupe"
	"github.com/okian/livescore/pkg/logger"
)

// Option configures a Relay.
type Option func(*Relay)

// WithSubject sets the subject messages are exchanged on.
func WithSubject(subject string) Option {
	return func(r *Relay) {
		if subject != "" {
			r.subject = subject
		}
	}
}

// WithOrigin sets this replica's id; messages carrying it are ignored on receipt.
func WithOrigin(origin string) Option {
	return func(r *Relay) {
		if origin != "" {
			r.origin = origin
		}
	}
}

// WithDeduper sets the store of already applied message ids.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Relay) {
		if d != nil {
			r.dedupe = d
		}
	}
}

// WithLogger sets the relay logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}
