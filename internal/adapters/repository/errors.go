package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrUnknownTeam    = errors.New("unknown team")
	ErrTeamNotFound   = errors.New("team not found")
	ErrEmptyIdentity  = errors.New("evaluator and team are required")
	ErrInvalidProfile = errors.New("invalid team profile")
	ErrPersist        = errors.New("persist failed")
	ErrHydrate        = errors.New("hydrate failed")
)
