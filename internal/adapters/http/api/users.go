package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// UserDependencies defines the interface for athlete and profile operations.
type UserDependencies interface {
	CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	GetAthlete(ctx context.Context, id string) (service.AthleteSummary, error)
	ListAthletes(ctx context.Context, f model.AthleteFilter) ([]service.AthleteSummary, int, error)
	GetAthleteInfo(ctx context.Context, athleteID string) (model.AthleteInfo, error)
	SaveAthleteInfo(ctx context.Context, info model.AthleteInfo) (model.AthleteInfo, error)
}

type createUserRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Type is "coach" or "athlete"; empty means athlete.
	Type string `json:"type"`
}

func (u createUserRequest) toAthlete() (model.Athlete, error) {
	a := model.Athlete{Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
	switch strings.ToLower(strings.TrimSpace(u.Type)) {
	case "", model.AthleteTypeAthlete:
	case model.AthleteTypeCoach:
		a.IsStaff = true
	default:
		return model.Athlete{}, fmt.Errorf("unknown type %q", u.Type)
	}
	return a, nil
}

type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	DateJoined   time.Time `json:"date_joined"`
	Type         string    `json:"type"`
	RunsFinished int       `json:"runs_finished"`
}

func toUserResponse(a model.Athlete, finished int) userResponse {
	return userResponse{
		ID:           a.ID,
		Username:     a.Username,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		DateJoined:   a.DateJoined,
		Type:         a.Type(),
		RunsFinished: finished,
	}
}

type athleteInfoBody struct {
	UserID string `json:"user_id"`
	Goals  string `json:"goals"`
	Weight *int   `json:"weight"`
}

// UsersHandler handles athlete and athlete info requests.
type UsersHandler struct {
	deps UserDependencies
	log  logger.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies, log logger.Logger) *UsersHandler {
	return &UsersHandler{deps: deps, log: log}
}

// HandleCreate handles POST /api/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := req.toAthlete()
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateAthlete(r.Context(), a)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(created, 0))
}

// HandleGet handles GET /api/users/{id}.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	s, err := h.deps.GetAthlete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(s.Athlete, s.FinishedRuns))
}

// HandleList handles GET /api/users?type=&search=&page=&size=.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_users"
	q := r.URL.Query()
	page, err := pageFromQuery(q)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	f := model.AthleteFilter{
		Type:   strings.ToLower(strings.TrimSpace(q.Get("type"))),
		Search: strings.TrimSpace(q.Get("search")),
		Page:   page,
	}
	users, total, err := h.deps.ListAthletes(r.Context(), f)
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	out := listResponse[userResponse]{Count: total, Results: make([]userResponse, 0, len(users))}
	for _, u := range users {
		out.Results = append(out.Results, toUserResponse(u.Athlete, u.FinishedRuns))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetInfo handles GET /api/athlete_info/{id}.
func (h *UsersHandler) HandleGetInfo(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_athlete_info"
	info, err := h.deps.GetAthleteInfo(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, athleteInfoBody{UserID: info.AthleteID, Goals: info.Goals, Weight: info.Weight})
}

// HandlePutInfo handles PUT /api/athlete_info/{id}. The path id wins over
// any user_id in the body.
func (h *UsersHandler) HandlePutInfo(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_athlete_info"
	var req athleteInfoBody
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	info, err := h.deps.SaveAthleteInfo(r.Context(), model.AthleteInfo{
		AthleteID: r.PathValue("id"),
		Goals:     req.Goals,
		Weight:    req.Weight,
	})
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, athleteInfoBody{UserID: info.AthleteID, Goals: info.Goals, Weight: info.Weight})
}
