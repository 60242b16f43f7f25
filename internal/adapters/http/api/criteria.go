package api

import (
	"context"
	"net/http"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
)

// CriteriaDependencies defines the interface for criterion management.
type CriteriaDependencies interface {
	ListCriteria(ctx context.Context) []model.Criterion
	CreateCriterion(ctx context.Context, name string, maxScore int) (model.Criterion, error)
	DeleteCriterion(ctx context.Context, id string) (model.Criterion, error)
}

// CriteriaHandler handles criterion requests.
type CriteriaHandler struct {
	deps CriteriaDependencies
}

// NewCriteriaHandler creates a new criteria handler.
func NewCriteriaHandler(deps CriteriaDependencies) *CriteriaHandler {
	return &CriteriaHandler{deps: deps}
}

type criterionRequest struct {
	Name     string `json:"name"`
	MaxScore int    `json:"max_score"`
}

// HandleList handles GET /api/criteria.
func (h *CriteriaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ListCriteria(r.Context()))
}

// HandleCreate handles POST /api/criteria.
func (h *CriteriaHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_criterion"
	if err := identityFrom(r).require(op, types.RoleOrganizer); err != nil {
		writeFailure(w, err)
		return
	}
	var req criterionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := h.deps.CreateCriterion(r.Context(), req.Name, req.MaxScore)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleDelete handles DELETE /api/criteria/{id}.
func (h *CriteriaHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_criterion"
	if err := identityFrom(r).require(op, types.RoleOrganizer); err != nil {
		writeFailure(w, err)
		return
	}
	c, err := h.deps.DeleteCriterion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}
