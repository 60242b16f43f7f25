package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/domain/model"
)

// ClockStore persists the single countdown record.
type ClockStore struct {
	durable kv.Store
}

// NewClockStore creates a ClockStore over durable.
func NewClockStore(durable kv.Store) *ClockStore {
	return &ClockStore{durable: durable}
}

// SaveClock writes the countdown record.
func (c *ClockStore) SaveClock(ctx context.Context, state model.ClockState) error {
	return putJSON(ctx, c.durable, clockKey, state)
}

// LoadClock returns the persisted record; found is false when none exists.
func (c *ClockStore) LoadClock(ctx context.Context) (state model.ClockState, found bool, err error) {
	raw, err := c.durable.Get(ctx, clockKey)
	if errors.Is(err, kv.ErrNotFound) {
		return model.ClockState{}, false, nil
	}
	if err != nil {
		return model.ClockState{}, false, fmt.Errorf("%w: %w", ErrHydrate, err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.ClockState{}, false, fmt.Errorf("%w: decode %s: %w", ErrHydrate, clockKey, err)
	}
	return state, true, nil
}
