package scoring

import "errors"

// Sentinel error kinds for score validation and criterion management.
var (
	// Validation kind.
	ErrOutOfRange        = errors.New("score out of range")
	ErrNotInteger        = errors.New("score must be an integer")
	ErrEmptyScores       = errors.New("no scores submitted")
	ErrInvalidDefinition = errors.New("invalid criterion definition")

	// Not-found kind.
	ErrInvalidCriterion  = errors.New("unknown criterion")
	ErrCriterionNotFound = errors.New("criterion not found")

	// Conflict kind.
	ErrDuplicateCriterion = errors.New("criterion already exists")
)
