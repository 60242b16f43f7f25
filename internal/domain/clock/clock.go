// Package clock holds the single shared countdown and derives remaining time from it.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/metrics"
)

// Store persists the countdown record.
type Store interface {
	SaveClock(ctx context.Context, state model.ClockState) error
}

// Controller is the authoritative countdown. Start and Stop are serialised;
// readers take a snapshot under a read lock and compute from it.
type Controller struct {
	writeMu sync.Mutex // serialises Start/Stop including persistence

	mu    sync.RWMutex
	state model.ClockState

	clock    clockwork.Clock
	store    Store
	onExpiry func(types.ClockView)
	expiry   clockwork.Timer
}

// NewController creates a stopped controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start sets the end time and activates the countdown. Starting while active
// replaces the previous end time.
func (c *Controller) Start(ctx context.Context, endTime time.Time) (types.ClockView, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	now := c.clock.Now()
	if !endTime.After(now) {
		return types.ClockView{}, fmt.Errorf("%w: %s is not after %s",
			ErrPastEndTime, endTime.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}

	next := model.ClockState{EndTime: endTime, IsActive: true}
	if err := c.persist(ctx, next); err != nil {
		return types.ClockView{}, err
	}
	c.apply(next)
	c.scheduleExpiry(endTime.Sub(now))
	return c.view(next, now), nil
}

// Stop deactivates the countdown and keeps the last end time for display.
func (c *Controller) Stop(ctx context.Context) (types.ClockView, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	next := c.snapshot()
	next.IsActive = false
	if err := c.persist(ctx, next); err != nil {
		return types.ClockView{}, err
	}
	c.apply(next)
	c.cancelExpiry()
	return c.view(next, c.clock.Now()), nil
}

// Restore installs a previously persisted state without writing it back.
func (c *Controller) Restore(state model.ClockState) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.apply(state)
	c.cancelExpiry()
	if state.IsActive {
		if d := state.EndTime.Sub(c.clock.Now()); d > 0 {
			c.scheduleExpiry(d)
		}
	}
}

// RemainingSeconds returns max(0, end-now) while active, else 0.
func (c *Controller) RemainingSeconds(now time.Time) float64 {
	return remaining(c.snapshot(), now)
}

// State returns end time, active flag and remaining seconds from one snapshot.
func (c *Controller) State(_ context.Context) types.ClockView {
	view := c.view(c.snapshot(), c.clock.Now())
	metrics.UpdateClockRemaining(view.RemainingSeconds)
	return view
}

// Now exposes the controller's time source.
func (c *Controller) Now() time.Time {
	return c.clock.Now()
}

// Close stops the pending expiry timer.
func (c *Controller) Close() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.cancelExpiry()
}

func (c *Controller) persist(ctx context.Context, next model.ClockState) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.SaveClock(ctx, next); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (c *Controller) apply(next model.ClockState) {
	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	metrics.UpdateClockActive(next.IsActive)
}

func (c *Controller) snapshot() model.ClockState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// scheduleExpiry must be called with writeMu held.
func (c *Controller) scheduleExpiry(d time.Duration) {
	c.cancelExpiry()
	if c.onExpiry == nil {
		return
	}
	c.expiry = c.clock.AfterFunc(d, func() {
		s := c.snapshot()
		if !s.IsActive || c.clock.Now().Before(s.EndTime) {
			return
		}
		c.onExpiry(c.view(s, c.clock.Now()))
	})
}

// cancelExpiry must be called with writeMu held.
func (c *Controller) cancelExpiry() {
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
}

func (c *Controller) view(s model.ClockState, now time.Time) types.ClockView {
	v := types.ClockView{
		IsActive:         s.IsActive,
		RemainingSeconds: remaining(s, now),
		ServerTime:       now.UTC(),
	}
	if !s.EndTime.IsZero() {
		end := s.EndTime.UTC()
		v.EndTime = &end
	}
	return v
}

func remaining(s model.ClockState, now time.Time) float64 {
	if !s.IsActive {
		return 0
	}
	left := s.EndTime.Sub(now).Seconds()
	if left < 0 {
		return 0
	}
	return left
}
