package repository

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/adapters/kv"
)

// Option applies a configuration option to the ScoreStore.
type Option func(*ScoreStore)

// WithDurable writes every accepted entry through to store.
func WithDurable(store kv.Store) Option {
	return func(s *ScoreStore) {
		s.durable = store
	}
}

// WithTeamChecker rejects submissions for teams the checker does not know.
func WithTeamChecker(tc TeamChecker) Option {
	return func(s *ScoreStore) {
		s.teams = tc
	}
}

// WithClock sets the time source used for SubmittedAt and the metrics ticker.
func WithClock(c clockwork.Clock) Option {
	return func(s *ScoreStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *ScoreStore) {
		if interval > 0 {
			s.metricsInterval = interval
		}
	}
}
