package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/domain/model"
)

// TeamStore keeps team profiles keyed by team name.
type TeamStore struct {
	mu      sync.RWMutex
	teams   map[string]model.Team
	durable kv.Store
}

// NewTeamStore creates an empty store; durable may be nil.
func NewTeamStore(durable kv.Store) *TeamStore {
	return &TeamStore{teams: make(map[string]model.Team), durable: durable}
}

// Exists reports whether a profile exists for teamID.
func (t *TeamStore) Exists(_ context.Context, teamID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.teams[teamID]
	return ok
}

// Get returns a team profile.
func (t *TeamStore) Get(_ context.Context, name string) (model.Team, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	team, ok := t.teams[name]
	if !ok {
		return model.Team{}, fmt.Errorf("%w: %s", ErrTeamNotFound, name)
	}
	return team, nil
}

// List returns all profiles ordered by name.
func (t *TeamStore) List(_ context.Context) []model.Team {
	t.mu.RLock()
	out := make([]model.Team, 0, len(t.teams))
	for _, team := range t.teams {
		out = append(out, team)
	}
	t.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Team) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Upsert replaces the whole profile of team.Name.
func (t *TeamStore) Upsert(ctx context.Context, team model.Team) (model.Team, error) {
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return model.Team{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	team.Members = slices.Clone(team.Members)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.durable != nil {
		if err := putJSON(ctx, t.durable, teamKey(team.Name), team); err != nil {
			return model.Team{}, err
		}
	}
	t.teams[team.Name] = team
	return team, nil
}

// Hydrate loads persisted profiles.
func (t *TeamStore) Hydrate(ctx context.Context) (int, error) {
	if t.durable == nil {
		return 0, nil
	}
	loaded, err := loadAll[model.Team](ctx, t.durable, teamPrefix)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	for _, team := range loaded {
		t.teams[team.Name] = team
	}
	t.mu.Unlock()
	return len(loaded), nil
}

// Seed registers a bare profile for each name not already present.
func (t *TeamStore) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		if t.Exists(ctx, name) {
			continue
		}
		if _, err := t.Upsert(ctx, model.Team{Name: name}); err != nil {
			return fmt.Errorf("seed team %q: %w", name, err)
		}
	}
	return nil
}
