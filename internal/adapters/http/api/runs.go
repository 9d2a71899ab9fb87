package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// RunDependencies defines the interface for run operations.
type RunDependencies interface {
	CreateRun(ctx context.Context, athleteID, comment string) (model.Run, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, int, error)
	ApplyTransition(ctx context.Context, runID string, action model.Action) (model.Run, error)
}

type createRunRequest struct {
	Athlete string `json:"athlete"`
	Comment string `json:"comment"`
}

func (r createRunRequest) validate() error {
	if strings.TrimSpace(r.Athlete) == "" {
		return errors.New("missing athlete")
	}
	return nil
}

type runResponse struct {
	ID        string    `json:"id"`
	Athlete   string    `json:"athlete"`
	Status    string    `json:"status"`
	Distance  float64   `json:"distance"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toRunResponse(r model.Run) runResponse {
	return runResponse{
		ID:        r.ID,
		Athlete:   r.AthleteID,
		Status:    string(r.Status),
		Distance:  r.Distance,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

// RunsHandler handles run requests.
type RunsHandler struct {
	deps RunDependencies
	log  logger.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies, log logger.Logger) *RunsHandler {
	return &RunsHandler{deps: deps, log: log}
}

// HandleCreate handles POST /api/runs.
func (h *RunsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_run"
	var req createRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	run, err := h.deps.CreateRun(r.Context(), req.Athlete, req.Comment)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunResponse(run))
}

// HandleGet handles GET /api/runs/{id}.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	run, err := h.deps.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// HandleList handles GET /api/runs?athlete=&status=&ordering=&page=&size=.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"
	q := r.URL.Query()

	f := model.RunFilter{AthleteID: strings.TrimSpace(q.Get("athlete"))}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseRunStatus(raw)
		if err != nil {
			writeFailure(r.Context(), h.log, w, op, err)
			return
		}
		f.Status = status
	}
	switch q.Get("ordering") {
	case "", "created_at":
	case "-created_at":
		f.Descending = true
	default:
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, errors.New("ordering must be created_at or -created_at")))
		return
	}
	page, err := pageFromQuery(q)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	f.Page = page

	runs, total, err := h.deps.ListRuns(r.Context(), f)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	out := listResponse[runResponse]{Count: total, Results: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		out.Results = append(out.Results, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleTransition handles POST /api/runs/{id}/{start|stop}.
func (h *RunsHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	const op = "api.transition_run"
	action, err := model.ParseAction(r.PathValue("action"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	run, err := h.deps.ApplyTransition(r.Context(), r.PathValue("id"), action)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}
