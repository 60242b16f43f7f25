// Package leaderboard derives ranked team totals from the current score entries.
package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/metrics"
)

// Compute builds the leaderboard from entries. It is a pure function: teams
// without entries are absent, ties on total fall back to judge count
// (descending) and then team name (ascending), and ranks are sequential.
func Compute(entries []model.ScoreEntry) []types.Entry {
	type acc struct {
		total  int
		judges map[string]struct{}
	}
	byTeam := make(map[string]*acc)
	for _, e := range entries {
		a, ok := byTeam[e.TeamID]
		if !ok {
			a = &acc{judges: make(map[string]struct{})}
			byTeam[e.TeamID] = a
		}
		a.total += e.Total()
		a.judges[e.EvaluatorID] = struct{}{}
	}

	out := make([]types.Entry, 0, len(byTeam))
	for team, a := range byTeam {
		out = append(out, types.Entry{TeamID: team, TotalScore: a.total, JudgeCount: len(a.judges)})
	}
	slices.SortFunc(out, compareEntries)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func compareEntries(a, b types.Entry) int {
	if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.JudgeCount, a.JudgeCount); c != 0 {
		return c
	}
	return strings.Compare(a.TeamID, b.TeamID)
}

// Source supplies consistent copies of the stored score entries.
type Source interface {
	Snapshot(ctx context.Context) []model.ScoreEntry
	ScoresForTeam(ctx context.Context, teamID string) []model.ScoreEntry
}

// Breakdown is the per-evaluator detail behind one team's total.
type Breakdown struct {
	TeamID     string             `json:"team"`
	TotalScore int                `json:"total_score"`
	JudgeCount int                `json:"judge_count"`
	Entries    []model.ScoreEntry `json:"entries"`
}

// Engine answers leaderboard queries by recomputing from a fresh snapshot.
type Engine struct {
	source Source
}

// NewEngine creates an engine reading from source.
func NewEngine(source Source) *Engine {
	return &Engine{source: source}
}

// Leaderboard returns the full ordered leaderboard.
func (e *Engine) Leaderboard(ctx context.Context) []types.Entry {
	start := time.Now()
	board := Compute(e.source.Snapshot(ctx))
	metrics.RecordRecomputeLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	metrics.UpdateLeaderboardTeams(len(board))
	return board
}

// TopN returns at most n leading entries. n <= 0 returns an empty slice.
func (e *Engine) TopN(ctx context.Context, n int) []types.Entry {
	if n <= 0 {
		return []types.Entry{}
	}
	board := e.Leaderboard(ctx)
	if n < len(board) {
		board = board[:n]
	}
	return board
}

// Rank returns the entry of one team.
func (e *Engine) Rank(ctx context.Context, teamID string) (types.Entry, error) {
	for _, entry := range e.Leaderboard(ctx) {
		if entry.TeamID == teamID {
			return entry, nil
		}
	}
	return types.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, teamID)
}

// Breakdown returns a team's total with the entries that produced it, ordered by evaluator.
func (e *Engine) Breakdown(ctx context.Context, teamID string) (Breakdown, error) {
	entries := e.source.ScoresForTeam(ctx, teamID)
	if len(entries) == 0 {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrNotFound, teamID)
	}
	slices.SortFunc(entries, func(a, b model.ScoreEntry) int {
		return strings.Compare(a.EvaluatorID, b.EvaluatorID)
	})

	b := Breakdown{TeamID: teamID, Entries: entries}
	for _, entry := range entries {
		b.TotalScore += entry.Total()
	}
	b.JudgeCount = len(entries)
	return b, nil
}
