package api

import (
	"context"
	"net/http"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
)

// CollectibleDependencies defines the interface for collectible item operations.
type CollectibleDependencies interface {
	CreateCollectible(ctx context.Context, item model.CollectibleItem) (model.CollectibleItem, error)
	GetCollectible(ctx context.Context, id string) (service.CollectibleDetail, error)
	ListCollectibles(ctx context.Context) ([]model.CollectibleItem, error)
	ListCollected(ctx context.Context, athleteID string) ([]model.CollectibleItem, error)
}

type collectibleRequest struct {
	Name      string  `json:"name"`
	UID       string  `json:"uid"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Picture   string  `json:"picture"`
	Value     int     `json:"value"`
}

type collectibleResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	UID        string   `json:"uid"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Picture    string   `json:"picture,omitempty"`
	Value      int      `json:"value"`
	Collectors []string `json:"collectors,omitempty"`
}

func toCollectibleResponse(c model.CollectibleItem) collectibleResponse {
	return collectibleResponse{
		ID:        c.ID,
		Name:      c.Name,
		UID:       c.UID,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Picture:   c.PictureRef,
		Value:     c.Value,
	}
}

func toCollectibleList(items []model.CollectibleItem) listResponse[collectibleResponse] {
	out := listResponse[collectibleResponse]{Count: len(items), Results: make([]collectibleResponse, 0, len(items))}
	for _, it := range items {
		out.Results = append(out.Results, toCollectibleResponse(it))
	}
	return out
}

// CollectiblesHandler handles collectible item requests.
type CollectiblesHandler struct {
	deps CollectibleDependencies
	log  logger.Logger
}

// NewCollectiblesHandler creates a new collectibles handler.
func NewCollectiblesHandler(deps CollectibleDependencies, log logger.Logger) *CollectiblesHandler {
	return &CollectiblesHandler{deps: deps, log: log}
}

// HandleCreate handles POST /api/collectible_item.
func (h *CollectiblesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_collectible"
	var req collectibleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(r.Context(), h.log, w, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	item, err := h.deps.CreateCollectible(r.Context(), model.CollectibleItem{
		Name:       req.Name,
		UID:        req.UID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		PictureRef: req.Picture,
		Value:      req.Value,
	})
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCollectibleResponse(item))
}

// HandleGet handles GET /api/collectible_item/{id}.
func (h *CollectiblesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_collectible"
	d, err := h.deps.GetCollectible(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	resp := toCollectibleResponse(d.CollectibleItem)
	resp.Collectors = d.Collectors
	writeJSON(w, http.StatusOK, resp)
}

// HandleList handles GET /api/collectible_item.
func (h *CollectiblesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_collectibles"
	items, err := h.deps.ListCollectibles(r.Context())
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectibleList(items))
}

// HandleCollected handles GET /api/athletes/{id}/items.
func (h *CollectiblesHandler) HandleCollected(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_collected"
	items, err := h.deps.ListCollected(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), h.log, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectibleList(items))
}
