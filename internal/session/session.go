// Package session keeps one live event channel open from a client to the
// service, reconnecting with exponential backoff when it drops.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/pkg/logger"
	"github.com/okian/livescore/pkg/metrics"
)

// DefaultHandshakeTimeout bounds a single dial.
const DefaultHandshakeTimeout = 10 * time.Second

// State is the externally visible session state.
type State string

// Session states.
const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateOffline      State = "offline"
	StateClosed       State = "closed"
)

// Event is one pushed notification.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Transition describes a state change. Delay is set when a retry is
// scheduled; Err carries the failure that caused it.
type Transition struct {
	State   State
	Attempt int
	Delay   time.Duration
	Err     error
}

// Session owns one reconnecting channel. Callbacks run on the session's own
// goroutine, one at a time, in arrival order.
type Session struct {
	url              string
	dialer           Dialer
	clock            clockwork.Clock
	handshakeTimeout time.Duration
	initialDelay     time.Duration
	maxDelay         time.Duration
	multiplier       float64
	maxAttempts      int
	onEvent          func(Event)
	onTransition     func(Transition)
	logger           logger.Logger

	mu      sync.Mutex
	machine *Backoff
	conn    Conn
	started bool
	closed  bool

	reconnect chan struct{}
	done      chan struct{}
	exited    chan struct{}
}

// New creates an idle session for url.
func New(url string, opts ...Option) *Session {
	s := &Session{
		url:              url,
		clock:            clockwork.NewRealClock(),
		handshakeTimeout: DefaultHandshakeTimeout,
		initialDelay:     DefaultInitialDelay,
		maxDelay:         DefaultMaxDelay,
		multiplier:       DefaultMultiplier,
		maxAttempts:      DefaultMaxAttempts,
		onEvent:          func(Event) {},
		onTransition:     func(Transition) {},
		logger:           logger.Get().Named("session"),
		reconnect:        make(chan struct{}, 1),
		done:             make(chan struct{}),
		exited:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = NewWebsocketDialer(s.handshakeTimeout)
	}
	s.machine = NewBackoff(s.initialDelay, s.maxDelay, s.multiplier, s.maxAttempts)
	return s
}

// Start begins connecting in the background.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrStarted
	}
	s.started = true
	go s.run(ctx)
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// Attempt returns the number of retries scheduled since the last open.
func (s *Session) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Attempt()
}

// Reconnect starts over with fresh counters. It is the only way out of the
// offline state; while a retry is pending it skips the wait.
func (s *Session) Reconnect() {
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

// Close stops the session and waits for its goroutine to exit.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	conn := s.conn
	close(s.done)
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if started {
		<-s.exited
	}
	s.mu.Lock()
	s.machine.Close()
	s.mu.Unlock()
	s.onTransition(Transition{State: StateClosed})
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.exited)

	for {
		if s.stopping(ctx) {
			return
		}
		s.update(func(b *Backoff) { b.Connecting() }, nil)

		err := s.connectAndRead(ctx)
		if s.stopping(ctx) {
			return
		}

		var (
			delay time.Duration
			ok    bool
		)
		s.update(func(b *Backoff) { delay, ok = b.Failed() }, err)
		if !ok {
			metrics.RecordSessionReconnect("exhausted")
			s.logger.Warn(ctx, "live updates unavailable", logger.Error(err))
			if !s.waitManual(ctx) {
				return
			}
			continue
		}

		metrics.RecordSessionReconnect("scheduled")
		s.logger.Info(ctx, "reconnecting",
			logger.Int("attempt", s.Attempt()),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
		select {
		case <-s.clock.After(delay):
		case <-s.reconnect:
			s.update(func(b *Backoff) { b.Reset() }, nil)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// connectAndRead dials, delivers events until the channel fails, and returns the failure.
func (s *Session) connectAndRead(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, s.handshakeTimeout)
	conn, err := s.dialer.Dial(dctx, s.url)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrHandshakeTimeout) {
			err = errors.Join(ErrHandshakeTimeout, err)
		}
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.mu.Unlock()

	metrics.RecordSessionReconnect("opened")
	s.update(func(b *Backoff) { b.Opened() }, nil)

	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, err := parseEvent(data)
		if err != nil {
			s.logger.Warn(ctx, "dropping malformed event", logger.Error(err), logger.Int("bytes", len(data)))
			continue
		}
		s.onEvent(ev)
	}
}

// waitManual blocks in the offline state until Reconnect. It reports false
// when the session is stopping instead.
func (s *Session) waitManual(ctx context.Context) bool {
	select {
	case <-s.reconnect:
		s.update(func(b *Backoff) { b.Reset() }, nil)
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Session) stopping(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// update mutates the machine and reports the resulting transition.
func (s *Session) update(fn func(*Backoff), cause error) {
	s.mu.Lock()
	fn(s.machine)
	t := Transition{State: s.machine.State(), Attempt: s.machine.Attempt(), Delay: s.machine.Delay(), Err: cause}
	s.mu.Unlock()

	if t.State == StateOffline {
		t.Err = errors.Join(ErrExhaustedRetries, cause)
	}
	s.onTransition(t)
}

func parseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}
