// Package repository holds the authoritative in-memory state for scores,
// criteria and team profiles, written through to the key/value store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/domain/model"
)

// Key layout in the key/value store.
const (
	scorePrefix     = "score/"
	criterionPrefix = "criterion/"
	teamPrefix      = "team/"
	clockKey        = "clock/state"

	// criteriaSeededKey marks that the configured criteria were created once.
	criteriaSeededKey = "seed/criteria"
)

// Scores is the read/write contract of the score store.
type Scores interface {
	// Submit validates scores and replaces the (evaluator, team) entry.
	Submit(ctx context.Context, evaluatorID, teamID string, scores map[string]int) (model.ScoreEntry, error)
	// ScoresForTeam returns copies of every entry for team.
	ScoresForTeam(ctx context.Context, teamID string) []model.ScoreEntry
	// Snapshot returns a consistent copy of all entries.
	Snapshot(ctx context.Context) []model.ScoreEntry
	// Count returns the number of stored entries.
	Count(ctx context.Context) int
}

// TeamChecker reports whether a team is registered.
type TeamChecker interface {
	Exists(ctx context.Context, teamID string) bool
}

func scoreKey(teamID, evaluatorID string) string {
	return scorePrefix + url.PathEscape(teamID) + "/" + url.PathEscape(evaluatorID)
}

func teamKey(name string) string {
	return teamPrefix + url.PathEscape(name)
}

func criterionKey(id string) string {
	return criterionPrefix + url.PathEscape(id)
}

func putJSON(ctx context.Context, store kv.Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersist, key, err)
	}
	if err := store.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// loadAll decodes every item under prefix into T.
func loadAll[T any](ctx context.Context, store kv.Store, prefix string) ([]T, error) {
	items, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHydrate, err)
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		var v T
		if err := json.Unmarshal(it.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrHydrate, it.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
