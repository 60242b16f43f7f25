package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/livescore/internal/adapters/repository"
	"github.com/okian/livescore/internal/domain/clock"
	"github.com/okian/livescore/internal/domain/leaderboard"
	"github.com/okian/livescore/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
	ErrUpgrade     = errors.New("websocket upgrade failed")
)

// Error carries the failing operation, a sentinel kind and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap prefixes err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind records err as a kind failure of op.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, scoring.ErrDuplicateCriterion):
		return http.StatusConflict, "conflict"
	case errors.Is(err, leaderboard.ErrNotFound),
		errors.Is(err, scoring.ErrInvalidCriterion),
		errors.Is(err, scoring.ErrCriterionNotFound),
		errors.Is(err, repository.ErrUnknownTeam),
		errors.Is(err, repository.ErrTeamNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, scoring.ErrOutOfRange),
		errors.Is(err, scoring.ErrNotInteger),
		errors.Is(err, scoring.ErrEmptyScores),
		errors.Is(err, scoring.ErrInvalidDefinition),
		errors.Is(err, clock.ErrPastEndTime),
		errors.Is(err, repository.ErrEmptyIdentity),
		errors.Is(err, repository.ErrInvalidProfile):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
