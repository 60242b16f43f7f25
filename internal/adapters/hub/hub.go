// Package hub tracks live client connections and fans state-change events
// out to them.
//
// Delivery is best effort and independent per connection: Publish only
// places a frame on each connection's bounded send queue. A connection whose
// queue is full, or whose transport fails, is closed and removed from the
// registry; the publisher never waits for it.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
	"github.com/okian/livescore/pkg/metrics"
)

// Defaults for connection handling.
const (
	defaultSendBuffer     = 64
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 25 * time.Second
	defaultReadTimeout    = 60 * time.Second
	defaultMaxMessageSize = 4096
)

// Envelope is the wire format of every pushed event.
type Envelope struct {
	ID        string          `json:"id"`
	Type      types.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Audience selects which connections receive an event.
type Audience struct {
	roles []types.Role
}

// AudienceAll reaches every connection regardless of role.
var AudienceAll = Audience{}

// AudienceRoles reaches only connections with one of roles. No roles means everyone.
func AudienceRoles(roles ...types.Role) Audience {
	return Audience{roles: slices.Clone(roles)}
}

// Includes reports whether a connection with role is part of the audience.
func (a Audience) Includes(role types.Role) bool {
	return len(a.roles) == 0 || slices.Contains(a.roles, role)
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int                `json:"connections"`
	ByRole      map[types.Role]int `json:"by_role"`
}

// Hub is the registry of live connections keyed by identity.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	closed bool

	sendBuffer     int
	writeTimeout   time.Duration
	pingInterval   time.Duration
	readTimeout    time.Duration
	maxMessageSize int64

	clock  clockwork.Clock
	newID  func() string
	logger logger.Logger
}

// New creates an empty hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		conns:          make(map[string]*Connection),
		sendBuffer:     defaultSendBuffer,
		writeTimeout:   defaultWriteTimeout,
		pingInterval:   defaultPingInterval,
		readTimeout:    defaultReadTimeout,
		maxMessageSize: defaultMaxMessageSize,
		clock:          clockwork.NewRealClock(),
		newID:          func() string { return uuid.NewString() },
		logger:         logger.Get().Named("hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register starts serving transport for identity. A previous connection for
// the same identity is closed and replaced.
func (h *Hub) Register(identity string, role types.Role, transport Transport) (*Connection, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, ErrEmptyIdentity
	}
	if transport == nil {
		return nil, ErrNilTransport
	}

	c := newConnection(h, h.newID(), identity, role, transport)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = transport.Close()
		return nil, ErrClosed
	}
	previous := h.conns[identity]
	h.conns[identity] = c
	count := len(h.conns)
	h.mu.Unlock()

	if previous != nil {
		previous.close()
		metrics.RecordHubDrop("replaced")
	}
	// pumps start only after c is in the registry
	c.start()
	metrics.UpdateHubConnections(count)
	h.logger.Info(context.Background(), "connection registered",
		logger.String("connection_id", c.ID),
		logger.String("identity", identity),
		logger.String("role", string(role)),
		logger.Int("connections", count),
	)
	return c, nil
}

// Unregister closes and removes the connection for identity. It reports
// whether one was registered.
func (h *Hub) Unregister(identity string) bool {
	h.mu.Lock()
	c, ok := h.conns[identity]
	if ok {
		delete(h.conns, identity)
	}
	count := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return false
	}
	c.close()
	metrics.UpdateHubConnections(count)
	return true
}

// Publish wraps payload in an envelope and queues it on every connection in
// audience. It returns the envelope so it can be relayed elsewhere; the only
// error is a payload that cannot be encoded.
func (h *Hub) Publish(eventType types.EventType, payload any, audience Audience) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %w", ErrEncode, eventType, err)
	}
	env := Envelope{
		ID:        h.newID(),
		Type:      eventType,
		Timestamp: h.clock.Now().UTC(),
		Data:      data,
	}
	if _, err := h.Deliver(env, audience); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Deliver queues an already built envelope on every connection in audience
// and returns how many connections accepted it.
func (h *Hub) Deliver(env Envelope, audience Audience) (int, error) {
	frame, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrEncode, env.Type, err)
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		if audience.Includes(c.Role) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		switch c.State() {
		case StateConnecting:
		case StateClosed:
			h.drop(c, "closed")
		default:
			h.logger.Warn(context.Background(), "connection send buffer full, closing connection",
				logger.String("connection_id", c.ID),
				logger.String("identity", c.Identity),
			)
			h.drop(c, "slow")
		}
	}
	metrics.RecordHubBroadcast(string(env.Type))
	return delivered, nil
}

// Connection returns the live connection for identity, if any.
func (h *Hub) Connection(identity string) (*Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[identity]
	return c, ok
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stats returns connection counts overall and per role.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := Stats{Connections: len(h.conns), ByRole: make(map[types.Role]int)}
	for _, c := range h.conns {
		s.ByRole[c.Role]++
	}
	return s
}

// Close closes every connection and rejects new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.conns))
	for id, c := range h.conns {
		conns = append(conns, c)
		delete(h.conns, id)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	metrics.UpdateHubConnections(0)
}

// drop removes c if it is still the registered connection for its identity
// and closes it.
func (h *Hub) drop(c *Connection, reason string) {
	h.mu.Lock()
	removed := false
	if cur, ok := h.conns[c.Identity]; ok && cur == c {
		delete(h.conns, c.Identity)
		removed = true
	}
	count := len(h.conns)
	h.mu.Unlock()

	c.close()
	if removed {
		metrics.RecordHubDrop(reason)
		metrics.UpdateHubConnections(count)
		h.logger.Debug(context.Background(), "connection removed",
			logger.String("connection_id", c.ID),
			logger.String("identity", c.Identity),
			logger.String("reason", reason),
		)
	}
}
