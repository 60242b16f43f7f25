package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Reconnect policy defaults.
const (
	DefaultInitialDelay = 3 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 1.5
	DefaultMaxAttempts  = 5
)

// Backoff is the reconnect state machine: {attempt, delay, state}. It is not
// safe for concurrent use; a Session drives it from its run loop only.
type Backoff struct {
	attempt     int
	delay       time.Duration
	state       State
	maxAttempts int
	exp         *backoff.ExponentialBackOff
}

// NewBackoff creates a machine in the idle state. Delays grow by multiplier
// from initial up to maxDelay; after maxAttempts scheduled retries the next
// failure is terminal.
func NewBackoff(initial, maxDelay time.Duration, multiplier float64, maxAttempts int) *Backoff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initial
	exp.MaxInterval = maxDelay
	exp.Multiplier = multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()
	return &Backoff{state: StateIdle, maxAttempts: maxAttempts, exp: exp}
}

// Attempt is the number of retries scheduled since the last successful open.
func (b *Backoff) Attempt() int { return b.attempt }

// Delay is the wait before the currently scheduled retry.
func (b *Backoff) Delay() time.Duration { return b.delay }

// State is the machine's current state.
func (b *Backoff) State() State { return b.state }

// Connecting records that a dial is in progress.
func (b *Backoff) Connecting() {
	b.state = StateConnecting
}

// Opened resets the attempt counter and the delay.
func (b *Backoff) Opened() {
	b.attempt = 0
	b.delay = 0
	b.exp.Reset()
	b.state = StateOpen
}

// Failed records a failed dial or a dropped connection. It returns the wait
// before the next attempt, or ok=false once retries are exhausted.
func (b *Backoff) Failed() (delay time.Duration, ok bool) {
	if b.attempt >= b.maxAttempts {
		b.delay = 0
		b.state = StateOffline
		return 0, false
	}
	b.attempt++
	b.delay = b.exp.NextBackOff()
	b.state = StateReconnecting
	return b.delay, true
}

// Reset returns the machine to idle with fresh counters.
func (b *Backoff) Reset() {
	b.attempt = 0
	b.delay = 0
	b.exp.Reset()
	b.state = StateIdle
}

// Close moves the machine to its final state.
func (b *Backoff) Close() {
	b.state = StateClosed
}
