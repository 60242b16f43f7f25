// Package types contains common types used across the application
package types

import (
	"strings"
	"time"
)

// Role identifies what a caller is allowed to do.
type Role string

// Known roles.
const (
	RoleOrganizer Role = "organizer"
	RoleEvaluator Role = "evaluator"
	RoleTeam      Role = "team"
	RolePublic    Role = "public"
)

// ParseRole maps a raw role string to a Role. Unknown or empty values are public.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOrganizer:
		return RoleOrganizer
	case RoleEvaluator:
		return RoleEvaluator
	case RoleTeam:
		return RoleTeam
	default:
		return RolePublic
	}
}

// EventType names a server-pushed notification.
type EventType string

// Pushed event types.
const (
	EventScoreUpdate       EventType = "score_update"
	EventLeaderboardUpdate EventType = "leaderboard_update"
	EventClockUpdate       EventType = "clock_update"
)

// Entry represents a leaderboard entry
type Entry struct {
	Rank       int    `json:"rank"`
	TeamID     string `json:"team"`
	TotalScore int    `json:"total_score"`
	JudgeCount int    `json:"judge_count"`
}

// ClockView is the read model of the shared countdown.
type ClockView struct {
	EndTime          *time.Time `json:"end_time,omitempty"`
	IsActive         bool       `json:"is_active"`
	RemainingSeconds float64    `json:"remaining_seconds"`
	ServerTime       time.Time  `json:"server_time"`
}

// ScoreUpdate is the payload of a score_update event.
type ScoreUpdate struct {
	TeamID      string `json:"team"`
	EvaluatorID string `json:"evaluator"`
}

// LeaderboardUpdate is the payload of a leaderboard_update event.
type LeaderboardUpdate struct {
	Entries []Entry `json:"entries"`
}
