// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"time"
)

// Team is a participant team. Name is its identity and the aggregation key.
type Team struct {
	Name               string   `json:"name"`
	LeaderName         string   `json:"leader_name,omitempty"`
	Members            []string `json:"members,omitempty"`
	ProjectName        string   `json:"project_name,omitempty"`
	ProjectDescription string   `json:"project_description,omitempty"`
	ProjectURL         string   `json:"project_url,omitempty"`
}

// Criterion is a named, capped scoring dimension.
type Criterion struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxScore int    `json:"max_score"`
}

// ScoreEntry is one evaluator's latest scores for one team.
// Values are never mutated after construction; a resubmission builds a new entry.
type ScoreEntry struct {
	EvaluatorID string         `json:"evaluator"`
	TeamID      string         `json:"team"`
	Scores      map[string]int `json:"scores"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// NewScoreEntry copies scores so the caller cannot mutate the stored entry.
func NewScoreEntry(evaluatorID, teamID string, scores map[string]int, at time.Time) ScoreEntry {
	return ScoreEntry{
		EvaluatorID: evaluatorID,
		TeamID:      teamID,
		Scores:      maps.Clone(scores),
		SubmittedAt: at,
	}
}

// Total sums every criterion value of the entry.
func (e ScoreEntry) Total() int {
	total := 0
	for _, v := range e.Scores {
		total += v
	}
	return total
}

// ClockState is the single shared countdown record.
type ClockState struct {
	EndTime  time.Time `json:"end_time"`
	IsActive bool      `json:"is_active"`
}

// ChangeKind classifies a ChangeEvent.
type ChangeKind string

// Change kinds.
const (
	ChangeScore ChangeKind = "score"
	ChangeClock ChangeKind = "clock"
)

// ChangeEvent is enqueued after a state mutation so workers can recompute and notify.
type ChangeEvent struct {
	EventID     string     `json:"event_id"`            // unique id, also used for relay de-duplication
	Kind        ChangeKind `json:"kind"`                // what changed
	TeamID      string     `json:"team,omitempty"`      // set for score changes
	EvaluatorID string     `json:"evaluator,omitempty"` // set for score changes
	TS          time.Time  `json:"ts"`                  // when the mutation was accepted
}
