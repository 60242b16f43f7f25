package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/scoring"
	"github.com/okian/livescore/internal/domain/types"
)

// ScoreDependencies defines the interface for score submission.
type ScoreDependencies interface {
	SubmitScore(ctx context.Context, evaluatorID, teamID string, scores map[string]int) (model.ScoreEntry, error)
}

// ScoresHandler handles score submissions.
type ScoresHandler struct {
	deps    ScoreDependencies
	limiter *RateLimiter
}

// NewScoresHandler creates a new scores handler. A nil limiter disables rate limiting.
func NewScoresHandler(deps ScoreDependencies, limiter *RateLimiter) *ScoresHandler {
	return &ScoresHandler{deps: deps, limiter: limiter}
}

// scoreRequest mirrors the OpenAPI schema for POST /api/scores.
type scoreRequest struct {
	Team   string             `json:"team"`
	Scores map[string]float64 `json:"scores"`
}

// HandlePostScore handles POST /api/scores. The evaluator is the caller.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	caller := identityFrom(r)
	if err := caller.require(op, types.RoleEvaluator); err != nil {
		writeFailure(w, err)
		return
	}
	if h.limiter != nil && !h.limiter.Allow(caller.ID) {
		writeFailure(w, NewKind(op, ErrRateLimited))
		return
	}

	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Team) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	scores, err := scoring.ToIntegers(req.Scores)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	entry, err := h.deps.SubmitScore(r.Context(), caller.ID, req.Team, scores)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
