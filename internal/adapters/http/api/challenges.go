package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// ChallengeDependencies defines the interface for reading awarded challenges.
type ChallengeDependencies interface {
	ListChallenges(ctx context.Context, athleteID string) ([]model.Challenge, error)
}

type challengeResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Athlete  string `json:"athlete"`
}

// ChallengesHandler handles challenge requests.
type ChallengesHandler struct {
	deps ChallengeDependencies
	log  logger.Logger
}

// NewChallengesHandler creates a new challenges handler.
func NewChallengesHandler(deps ChallengeDependencies, log logger.Logger) *ChallengesHandler {
	return &ChallengesHandler{deps: deps, log: log}
}

// HandleList handles GET /api/challenges?athlete=.
func (h *ChallengesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_challenges"
	cs, err := h.deps.ListChallenges(r.Context(), strings.TrimSpace(r.URL.Query().Get("athlete")))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	out := listResponse[challengeResponse]{Count: len(cs), Results: make([]challengeResponse, 0, len(cs))}
	for _, c := range cs {
		out.Results = append(out.Results, challengeResponse{ID: c.ID, FullName: c.FullName, Athlete: c.AthleteID})
	}
	writeJSON(w, http.StatusOK, out)
}
