package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"github.com/okian/stride/internal/domain/model"
)

// CollectibleDetail is an item with the athletes that collected it.
type CollectibleDetail struct {
	model.CollectibleItem
	Collectors []string
}

// CreateCollectible stores a new item. An empty uid is derived from the name.
func (s *Service) CreateCollectible(ctx context.Context, item model.CollectibleItem) (model.CollectibleItem, error) {
	st, err := s.repo()
	if err != nil {
		return model.CollectibleItem{}, err
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return model.CollectibleItem{}, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if err := model.ValidateCoordinates(item.Latitude, item.Longitude); err != nil {
		return model.CollectibleItem{}, err
	}
	if item.Value < 0 {
		return model.CollectibleItem{}, fmt.Errorf("%w: value must not be negative", model.ErrValidation)
	}
	item.UID = strings.TrimSpace(item.UID)
	if item.UID == "" {
		item.UID = slug.Make(item.Name)
	}
	if item.UID == "" {
		return model.CollectibleItem{}, fmt.Errorf("%w: cannot derive uid from name %q", model.ErrValidation, item.Name)
	}
	return st.CreateCollectible(ctx, item)
}

// GetCollectible returns one item and its collectors.
func (s *Service) GetCollectible(ctx context.Context, id string) (CollectibleDetail, error) {
	st, err := s.repo()
	if err != nil {
		return CollectibleDetail{}, err
	}
	item, err := st.GetCollectible(ctx, id)
	if err != nil {
		return CollectibleDetail{}, err
	}
	collectors, err := st.ListCollectors(ctx, id)
	if err != nil {
		return CollectibleDetail{}, err
	}
	return CollectibleDetail{CollectibleItem: item, Collectors: collectors}, nil
}

func (s *Service) ListCollectibles(ctx context.Context) ([]model.CollectibleItem, error) {
	st, err := s.repo()
	if err != nil {
		return nil, err
	}
	return st.ListCollectibles(ctx)
}

// ListCollected returns the items an athlete has picked up.
func (s *Service) ListCollected(ctx context.Context, athleteID string) ([]model.CollectibleItem, error) {
	st, err := s.repo()
	if err != nil {
		return nil, err
	}
	if _, err := st.GetAthlete(ctx, athleteID); err != nil {
		return nil, err
	}
	return st.ListCollected(ctx, athleteID)
}
