// Package relay forwards hub events between service replicas over NATS so
// clients connected to any replica see every change.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/livescore/internal/adapters/hub"
	"github.com/okian/livescore/internal/domain/dedupe"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/pkg/logger"
	"github.com/okian/livescore/pkg/metrics"
)

const defaultSubject = "livescore.events"

// Message is what replicas exchange: the change that happened and the
// envelope that was pushed to local clients because of it.
type Message struct {
	ID       string            `json:"id"`
	Origin   string            `json:"origin"`
	Change   model.ChangeEvent `json:"change"`
	Envelope hub.Envelope      `json:"envelope"`
}

// Handler applies a message received from another replica.
type Handler func(ctx context.Context, msg Message)

// Relay publishes local events and delivers remote ones exactly once per id.
type Relay struct {
	bus     Bus
	subject string
	origin  string
	dedupe  dedupe.Deduper
	logger  logger.Logger

	mu          sync.Mutex
	unsubscribe func() error
}

// New creates a relay on bus.
func New(bus Bus, opts ...Option) *Relay {
	r := &Relay{
		bus:     bus,
		subject: defaultSubject,
		origin:  uuid.NewString(),
		logger:  logger.Get().Named("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dedupe == nil {
		r.dedupe = dedupe.NewInMemoryDeduper()
	}
	return r
}

// Origin returns this replica's id.
func (r *Relay) Origin() string {
	return r.origin
}

// Forward publishes env, produced locally because of change, to other replicas.
func (r *Relay) Forward(ctx context.Context, change model.ChangeEvent, env hub.Envelope) error {
	msg := Message{ID: env.ID, Origin: r.origin, Change: change, Envelope: env}
	data, err := json.Marshal(msg)
	if err != nil {
		metrics.RecordRelayError("encode")
		return fmt.Errorf("%w: encode %s: %w", ErrPublish, msg.ID, err)
	}
	// Our own id is recorded so an echo is never applied.
	r.dedupe.SeenAndRecord(ctx, msg.ID)
	if err := r.bus.Publish(r.subject, data); err != nil {
		metrics.RecordRelayError("publish")
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	metrics.RecordRelayPublish()
	return nil
}

// Subscribe starts delivering remote messages to h. Messages from this
// replica, undecodable messages and repeated ids are dropped.
func (r *Relay) Subscribe(ctx context.Context, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unsubscribe != nil {
		return ErrSubscribed
	}
	unsub, err := r.bus.Subscribe(r.subject, func(data []byte) {
		r.receive(ctx, data, h)
	})
	if err != nil {
		metrics.RecordRelayError("subscribe")
		return fmt.Errorf("%w: subscribe %s: %w", ErrConnect, r.subject, err)
	}
	r.unsubscribe = unsub
	r.logger.Info(ctx, "relay subscribed", logger.String("subject", r.subject), logger.String("origin", r.origin))
	return nil
}

func (r *Relay) receive(ctx context.Context, data []byte, h Handler) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.ID == "" {
		metrics.RecordRelayError("decode")
		r.logger.Warn(ctx, "dropping malformed relay message", logger.Int("bytes", len(data)))
		return
	}
	if msg.Origin == r.origin {
		return
	}
	if r.dedupe.SeenAndRecord(ctx, msg.ID) {
		metrics.RecordRelayDuplicate()
		return
	}
	metrics.RecordRelayReceive()
	h(ctx, msg)
}

// Close unsubscribes and closes the bus.
func (r *Relay) Close() error {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsub != nil {
		if err := unsub(); err != nil {
			r.logger.Warn(context.Background(), "relay unsubscribe failed", logger.Error(err))
		}
	}
	return r.bus.Close()
}
