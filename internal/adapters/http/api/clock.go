package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/livescore/internal/domain/types"
)

// ClockDependencies defines the interface for the shared countdown.
type ClockDependencies interface {
	ClockState(ctx context.Context) types.ClockView
	StartClock(ctx context.Context, endTime time.Time) (types.ClockView, error)
	StopClock(ctx context.Context) (types.ClockView, error)
}

// ClockHandler handles countdown requests.
type ClockHandler struct {
	deps ClockDependencies
}

// NewClockHandler creates a new clock handler.
func NewClockHandler(deps ClockDependencies) *ClockHandler {
	return &ClockHandler{deps: deps}
}

type startClockRequest struct {
	EndTime string `json:"end_time"`
}

// HandleGetClock handles GET /api/clock.
func (h *ClockHandler) HandleGetClock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ClockState(r.Context()))
}

// HandleStartClock handles POST /api/clock/start.
func (h *ClockHandler) HandleStartClock(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_clock"
	if err := identityFrom(r).require(op, types.RoleOrganizer); err != nil {
		writeFailure(w, err)
		return
	}
	var req startClockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.StartClock(r.Context(), end)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleStopClock handles POST /api/clock/stop.
func (h *ClockHandler) HandleStopClock(w http.ResponseWriter, r *http.Request) {
	const op = "api.stop_clock"
	if err := identityFrom(r).require(op, types.RoleOrganizer); err != nil {
		writeFailure(w, err)
		return
	}
	view, err := h.deps.StopClock(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
