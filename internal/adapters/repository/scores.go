package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/scoring"
	"github.com/okian/livescore/pkg/metrics"
)

const writeStripes = 64

type entryKey struct {
	evaluator string
	team      string
}

// ScoreStore keeps one immutable ScoreEntry per (evaluator, team).
//
// Writes to one key are serialised by a striped lock so the durable copy and
// the in-memory copy always agree on the last write; writes to different keys
// only contend on the brief map update.
type ScoreStore struct {
	mu      sync.RWMutex
	entries map[entryKey]model.ScoreEntry

	stripes [writeStripes]sync.Mutex

	validator scoring.Validator
	teams     TeamChecker
	durable   kv.Store
	clock     clockwork.Clock

	metricsInterval time.Duration
	wg              sync.WaitGroup
	stopChan        chan struct{}
	closeOnce       sync.Once
}

var _ Scores = (*ScoreStore)(nil)

// NewScoreStore creates a store validating against validator.
func NewScoreStore(ctx context.Context, validator scoring.Validator, opts ...Option) *ScoreStore {
	s := &ScoreStore{
		entries:         make(map[entryKey]model.ScoreEntry),
		validator:       validator,
		clock:           clockwork.NewRealClock(),
		metricsInterval: 5 * time.Second,
		stopChan:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Submit validates and replaces the (evaluator, team) entry. Nothing is
// stored unless every criterion and value is valid and the durable write succeeds.
func (s *ScoreStore) Submit(ctx context.Context, evaluatorID, teamID string, scores map[string]int) (model.ScoreEntry, error) {
	if blank(evaluatorID) || blank(teamID) {
		metrics.RecordSubmissionRejected("empty_identity")
		return model.ScoreEntry{}, ErrEmptyIdentity
	}
	if s.teams != nil && !s.teams.Exists(ctx, teamID) {
		metrics.RecordSubmissionRejected("unknown_team")
		return model.ScoreEntry{}, fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
	}
	if err := s.validator.Validate(scores); err != nil {
		metrics.RecordSubmissionRejected(rejectReason(err))
		return model.ScoreEntry{}, err
	}

	key := entryKey{evaluator: evaluatorID, team: teamID}
	entry := model.NewScoreEntry(evaluatorID, teamID, scores, s.clock.Now().UTC())

	stripe := s.stripe(key)
	stripe.Lock()
	defer stripe.Unlock()

	if s.durable != nil {
		if err := putJSON(ctx, s.durable, scoreKey(teamID, evaluatorID), entry); err != nil {
			metrics.RecordSubmissionRejected("persist")
			return model.ScoreEntry{}, err
		}
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	metrics.RecordSubmissionAccepted()
	return entry, nil
}

// ScoresForTeam returns every entry for teamID.
func (s *ScoreStore) ScoresForTeam(_ context.Context, teamID string) []model.ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ScoreEntry, 0)
	for k, e := range s.entries {
		if k.team == teamID {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot copies all entries under one read lock. Entries are immutable, so
// sharing their score maps with the caller is safe.
func (s *ScoreStore) Snapshot(_ context.Context) []model.ScoreEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ScoreEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Count returns the number of stored entries.
func (s *ScoreStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Hydrate loads every persisted entry. Entries already in memory are replaced.
func (s *ScoreStore) Hydrate(ctx context.Context) (int, error) {
	if s.durable == nil {
		return 0, nil
	}
	loaded, err := loadAll[model.ScoreEntry](ctx, s.durable, scorePrefix)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	for _, e := range loaded {
		s.entries[entryKey{evaluator: e.EvaluatorID, team: e.TeamID}] = e
	}
	s.mu.Unlock()
	return len(loaded), nil
}

// Refresh reloads one (evaluator, team) entry from the durable store. It is
// used when another replica reports a write to the shared store.
func (s *ScoreStore) Refresh(ctx context.Context, evaluatorID, teamID string) error {
	if s.durable == nil {
		return nil
	}
	key := entryKey{evaluator: evaluatorID, team: teamID}
	stripe := s.stripe(key)
	stripe.Lock()
	defer stripe.Unlock()

	raw, err := s.durable.Get(ctx, scoreKey(teamID, evaluatorID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHydrate, err)
	}
	var entry model.ScoreEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrHydrate, scoreKey(teamID, evaluatorID), err)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Close stops the background metrics updater.
func (s *ScoreStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *ScoreStore) stripe(k entryKey) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k.team))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.evaluator))
	return &s.stripes[h.Sum32()%writeStripes]
}

func (s *ScoreStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(s.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.Chan():
				metrics.UpdateScoreEntries(s.Count(ctx))
			}
		}
	}()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, scoring.ErrInvalidCriterion):
		return "invalid_criterion"
	case errors.Is(err, scoring.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, scoring.ErrEmptyScores):
		return "empty_scores"
	case errors.Is(err, scoring.ErrNotInteger):
		return "not_integer"
	default:
		return "invalid"
	}
}
