package leaderboard

import "errors"

// ErrNotFound is returned when a team has no score entries.
var ErrNotFound = errors.New("team not on leaderboard")
