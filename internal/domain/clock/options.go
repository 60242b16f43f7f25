package clock

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/domain/types"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithClock sets the time source. Tests pass a clockwork fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.clock = c
		}
	}
}

// WithStore persists every Start and Stop before it takes effect.
func WithStore(s Store) Option {
	return func(ctrl *Controller) {
		ctrl.store = s
	}
}

// WithExpiryHook registers fn to run once an active countdown reaches zero.
func WithExpiryHook(fn func(types.ClockView)) Option {
	return func(ctrl *Controller) {
		ctrl.onExpiry = fn
	}
}
