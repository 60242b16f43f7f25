package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/adapters/hub"
	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/adapters/relay"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of change workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many relayed event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source shared by the score store and the countdown.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithKV uses store as the durable key/value collaborator.
func WithKV(store kv.Store) Option {
	return func(s *Service) {
		s.kv = store
	}
}

// WithDatabaseURL opens a Postgres key/value store at start when no store is set.
func WithDatabaseURL(dsn string) Option {
	return func(s *Service) {
		s.databaseURL = dsn
	}
}

// WithRelayBus enables the cross-replica relay on bus.
func WithRelayBus(bus relay.Bus) Option {
	return func(s *Service) {
		s.relayBus = bus
	}
}

// WithNATS dials NATS at start and relays events on subject.
func WithNATS(url, subject string) Option {
	return func(s *Service) {
		s.natsURL = url
		s.natsSubject = subject
	}
}

// WithCriteria seeds criteria that are missing from the store.
func WithCriteria(seeds []model.Criterion) Option {
	return func(s *Service) {
		s.criteriaSeed = seeds
	}
}

// WithTeams seeds team profiles that are missing from the store.
func WithTeams(names []string) Option {
	return func(s *Service) {
		s.teamSeed = names
	}
}

// WithRequireKnownTeam rejects submissions for teams without a profile.
func WithRequireKnownTeam(required bool) Option {
	return func(s *Service) {
		s.requireKnownTeam = required
	}
}

// WithHubOptions passes options through to the connection hub.
func WithHubOptions(opts ...hub.Option) Option {
	return func(s *Service) {
		s.hubOpts = append(s.hubOpts, opts...)
	}
}
