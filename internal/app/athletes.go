package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/stride/internal/domain/model"
)

// AthleteSummary is an athlete with the number of runs they finished.
type AthleteSummary struct {
	model.Athlete
	FinishedRuns int
}

// CreateAthlete registers an athlete or coach.
func (s *Service) CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	st, err := s.repo()
	if err != nil {
		return model.Athlete{}, err
	}
	a.Username = strings.TrimSpace(a.Username)
	if a.Username == "" {
		return model.Athlete{}, fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	return st.CreateAthlete(ctx, a)
}

// GetAthlete returns one athlete with their finished-run count.
func (s *Service) GetAthlete(ctx context.Context, id string) (AthleteSummary, error) {
	st, err := s.repo()
	if err != nil {
		return AthleteSummary{}, err
	}
	a, err := st.GetAthlete(ctx, id)
	if err != nil {
		return AthleteSummary{}, err
	}
	n, err := st.CountRuns(ctx, id, model.StatusFinished)
	if err != nil {
		return AthleteSummary{}, err
	}
	return AthleteSummary{Athlete: a, FinishedRuns: n}, nil
}

// ListAthletes returns one page of athletes ordered by join date, each with
// their finished-run count.
func (s *Service) ListAthletes(ctx context.Context, f model.AthleteFilter) ([]AthleteSummary, int, error) {
	st, err := s.repo()
	if err != nil {
		return nil, 0, err
	}
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	f.Page = s.page(f.Page)

	athletes, total, err := st.ListAthletes(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AthleteSummary, 0, len(athletes))
	for _, a := range athletes {
		n, err := st.CountRuns(ctx, a.ID, model.StatusFinished)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, AthleteSummary{Athlete: a, FinishedRuns: n})
	}
	return out, total, nil
}

// GetAthleteInfo returns the athlete's profile info, empty when none was saved.
func (s *Service) GetAthleteInfo(ctx context.Context, athleteID string) (model.AthleteInfo, error) {
	st, err := s.repo()
	if err != nil {
		return model.AthleteInfo{}, err
	}
	if _, err := st.GetAthlete(ctx, athleteID); err != nil {
		return model.AthleteInfo{}, err
	}
	info, err := st.GetAthleteInfo(ctx, athleteID)
	if errors.Is(err, model.ErrNotFound) {
		return model.AthleteInfo{AthleteID: athleteID}, nil
	}
	return info, err
}

// SaveAthleteInfo validates and replaces the athlete's profile info.
func (s *Service) SaveAthleteInfo(ctx context.Context, info model.AthleteInfo) (model.AthleteInfo, error) {
	st, err := s.repo()
	if err != nil {
		return model.AthleteInfo{}, err
	}
	if err := info.Validate(); err != nil {
		return model.AthleteInfo{}, err
	}
	return st.SaveAthleteInfo(ctx, info)
}
