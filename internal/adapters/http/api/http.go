// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RunDependencies
	PositionDependencies
	CollectibleDependencies
	ChallengeDependencies
	UserDependencies
	CompanyDependencies
	StatsProvider
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	runsHandler         *RunsHandler
	positionsHandler    *PositionsHandler
	collectiblesHandler *CollectiblesHandler
	challengesHandler   *ChallengesHandler
	usersHandler        *UsersHandler
	companyHandler      *CompanyHandler
	log                 logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*serverOptions)

type serverOptions struct {
	log logger.Logger
}

// WithLogger sets the logger handlers report server errors to.
func WithLogger(l logger.Logger) Option {
	return func(o *serverOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Named("api")
	}
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		runsHandler:         NewRunsHandler(deps, o.log),
		positionsHandler:    NewPositionsHandler(deps, o.log),
		collectiblesHandler: NewCollectiblesHandler(deps, o.log),
		challengesHandler:   NewChallengesHandler(deps, o.log),
		usersHandler:        NewUsersHandler(deps, o.log),
		companyHandler:      NewCompanyHandler(deps),
		log:                 o.log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz", s.log))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats", s.log))

	mux.HandleFunc("GET /api/runs", MetricsMiddleware(s.runsHandler.HandleList, "runs", s.log))
	mux.HandleFunc("POST /api/runs", MetricsMiddleware(s.runsHandler.HandleCreate, "runs", s.log))
	mux.HandleFunc("GET /api/runs/{id}", MetricsMiddleware(s.runsHandler.HandleGet, "run", s.log))
	mux.HandleFunc("POST /api/runs/{id}/{action}", MetricsMiddleware(s.runsHandler.HandleTransition, "run_transition", s.log))

	mux.HandleFunc("GET /api/positions", MetricsMiddleware(s.positionsHandler.HandleList, "positions", s.log))
	mux.HandleFunc("POST /api/positions", MetricsMiddleware(s.positionsHandler.HandleCreate, "positions", s.log))
	mux.HandleFunc("DELETE /api/positions/{id}", MetricsMiddleware(s.positionsHandler.HandleDelete, "position", s.log))

	mux.HandleFunc("GET /api/collectible_item", MetricsMiddleware(s.collectiblesHandler.HandleList, "collectibles", s.log))
	mux.HandleFunc("POST /api/collectible_item", MetricsMiddleware(s.collectiblesHandler.HandleCreate, "collectibles", s.log))
	mux.HandleFunc("GET /api/collectible_item/{id}", MetricsMiddleware(s.collectiblesHandler.HandleGet, "collectible", s.log))
	mux.HandleFunc("GET /api/athletes/{id}/items", MetricsMiddleware(s.collectiblesHandler.HandleCollected, "athlete_items", s.log))

	mux.HandleFunc("GET /api/challenges", MetricsMiddleware(s.challengesHandler.HandleList, "challenges", s.log))

	mux.HandleFunc("GET /api/users", MetricsMiddleware(s.usersHandler.HandleList, "users", s.log))
	mux.HandleFunc("POST /api/users", MetricsMiddleware(s.usersHandler.HandleCreate, "users", s.log))
	mux.HandleFunc("GET /api/users/{id}", MetricsMiddleware(s.usersHandler.HandleGet, "user", s.log))
	mux.HandleFunc("GET /api/athlete_info/{id}", MetricsMiddleware(s.usersHandler.HandleGetInfo, "athlete_info", s.log))
	mux.HandleFunc("PUT /api/athlete_info/{id}", MetricsMiddleware(s.usersHandler.HandlePutInfo, "athlete_info", s.log))

	mux.HandleFunc("GET /api/company_details", MetricsMiddleware(s.companyHandler.HandleGet, "company_details", s.log))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listResponse is the paginated envelope for list endpoints.
type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// pageFromQuery reads page and size. Zero values are left for the service
// to default and clamp.
func pageFromQuery(q url.Values) (model.Page, error) {
	var p model.Page
	var err error
	if p.Number, err = intParam(q, "page"); err != nil {
		return p, err
	}
	if p.Size, err = intParam(q, "size"); err != nil {
		return p, err
	}
	return p, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
