package api

import (
	"context"
	"net/http"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
)

// TeamDependencies defines the interface for team profiles.
type TeamDependencies interface {
	ListTeams(ctx context.Context) []model.Team
	UpsertTeam(ctx context.Context, team model.Team) (model.Team, error)
}

// TeamsHandler handles team profile requests.
type TeamsHandler struct {
	deps TeamDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// HandleList handles GET /api/teams.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListTeams(r.Context()))
}

// HandleUpsert handles PUT /api/teams/{team}. A team may only edit its own profile.
func (h *TeamsHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_team"
	name := r.PathValue("team")
	caller := identityFrom(r)
	if err := caller.require(op, types.RoleTeam); err != nil {
		writeFailure(w, err)
		return
	}
	if caller.ID != name {
		writeFailure(w, NewKind(op, ErrForbidden))
		return
	}

	var team model.Team
	if err := decodeJSON(w, r, &team); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	team.Name = name
	saved, err := h.deps.UpsertTeam(r.Context(), team)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
