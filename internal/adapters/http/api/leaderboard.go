package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/livescore/internal/domain/leaderboard"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) []Entry
	TopN(ctx context.Context, n int) []Entry
	Rank(ctx context.Context, teamID string) (Entry, error)
	Breakdown(ctx context.Context, teamID string) (leaderboard.Breakdown, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /api/leaderboard[?limit=N] requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		writeJSON(w, http.StatusOK, h.deps.Leaderboard(r.Context()))
		return
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.TopN(r.Context(), n))
}

// HandleGetTeamEntry handles GET /api/leaderboard/{team} requests.
func (h *LeaderboardHandler) HandleGetTeamEntry(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_team_entry"
	entry, err := h.deps.Rank(r.Context(), r.PathValue("team"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleGetBreakdown handles GET /api/teams/{team}/score requests.
func (h *LeaderboardHandler) HandleGetBreakdown(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_breakdown"
	b, err := h.deps.Breakdown(r.Context(), r.PathValue("team"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}
