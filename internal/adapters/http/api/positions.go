package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// PositionDependencies defines the interface for GPS sample operations.
type PositionDependencies interface {
	RecordPosition(ctx context.Context, in service.PositionInput) (model.Position, error)
	ListPositions(ctx context.Context, runID string) ([]model.Position, error)
	DeletePosition(ctx context.Context, id string) error
}

// positionRequest mirrors the OpenAPI schema for POST /api/positions.
// Coordinates are pointers so a missing field is told apart from 0.
type positionRequest struct {
	Run       string   `json:"run"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	DateTime  string   `json:"date_time"`
}

func (p positionRequest) toInput() (service.PositionInput, error) {
	switch {
	case strings.TrimSpace(p.Run) == "":
		return service.PositionInput{}, errors.New("missing run")
	case p.Latitude == nil:
		return service.PositionInput{}, errors.New("missing latitude")
	case p.Longitude == nil:
		return service.PositionInput{}, errors.New("missing longitude")
	}
	in := service.PositionInput{RunID: p.Run, Latitude: *p.Latitude, Longitude: *p.Longitude}
	if p.DateTime != "" {
		ts, err := time.Parse(time.RFC3339, p.DateTime)
		if err != nil {
			return service.PositionInput{}, errors.New("invalid date_time; must be RFC3339")
		}
		in.Timestamp = ts
	}
	return in, nil
}

type positionResponse struct {
	ID        string    `json:"id"`
	Run       string    `json:"run"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	DateTime  time.Time `json:"date_time"`
}

func toPositionResponse(p model.Position) positionResponse {
	return positionResponse{
		ID:        p.ID,
		Run:       p.RunID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		DateTime:  p.Timestamp,
	}
}

// PositionsHandler handles GPS sample requests.
type PositionsHandler struct {
	deps PositionDependencies
	log  logger.Logger
}

// NewPositionsHandler creates a new positions handler.
func NewPositionsHandler(deps PositionDependencies, log logger.Logger) *PositionsHandler {
	return &PositionsHandler{deps: deps, log: log}
}

// HandleCreate handles POST /api/positions.
func (h *PositionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_position"
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.RecordPosition(r.Context(), in)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPositionResponse(p))
}

// HandleList handles GET /api/positions?run=.
func (h *PositionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_positions"
	runID := strings.TrimSpace(r.URL.Query().Get("run"))
	if runID == "" {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, errors.New("missing run")))
		return
	}
	ps, err := h.deps.ListPositions(r.Context(), runID)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	out := listResponse[positionResponse]{Count: len(ps), Results: make([]positionResponse, 0, len(ps))}
	for _, p := range ps {
		out.Results = append(out.Results, toPositionResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /api/positions/{id}.
func (h *PositionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_position"
	if err := h.deps.DeletePosition(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
