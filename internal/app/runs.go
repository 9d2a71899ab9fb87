package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/stride/internal/domain/geo"
	"github.com/okian/stride/internal/domain/lifecycle"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// CreateRun registers a new run in init for an existing athlete.
func (s *Service) CreateRun(ctx context.Context, athleteID, comment string) (model.Run, error) {
	st, err := s.repo()
	if err != nil {
		return model.Run{}, err
	}
	if strings.TrimSpace(athleteID) == "" {
		return model.Run{}, fmt.Errorf("%w: athlete is required", model.ErrValidation)
	}
	if _, err := st.GetAthlete(ctx, athleteID); err != nil {
		return model.Run{}, err
	}

	run, err := st.CreateRun(ctx, model.Run{
		AthleteID: athleteID,
		Status:    model.StatusInit,
		Comment:   comment,
	})
	if err != nil {
		return model.Run{}, err
	}
	metrics.RecordRunCreated()
	s.logger.Debug(ctx, "run created", logger.String("run", run.ID), logger.String("athlete", athleteID))
	return run, nil
}

// GetRun returns one run.
func (s *Service) GetRun(ctx context.Context, id string) (model.Run, error) {
	st, err := s.repo()
	if err != nil {
		return model.Run{}, err
	}
	return st.GetRun(ctx, id)
}

// ListRuns returns one page of runs matching f and the total match count.
func (s *Service) ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, int, error) {
	st, err := s.repo()
	if err != nil {
		return nil, 0, err
	}
	f.Page = s.page(f.Page)
	return st.ListRuns(ctx, f)
}

// ApplyTransition moves a run through start or stop. A rejected transition
// leaves the run untouched and returns it with the error. A successful stop
// writes the travelled distance and then evaluates the athlete's challenges.
func (s *Service) ApplyTransition(ctx context.Context, runID string, action model.Action) (model.Run, error) {
	st, err := s.repo()
	if err != nil {
		return model.Run{}, err
	}

	unlock := s.runLocks.Lock(runID)
	defer unlock()

	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return model.Run{}, err
	}
	next, err := lifecycle.Next(run.Status, action)
	if err != nil {
		metrics.RecordTransitionRejected(string(action), string(run.Status))
		return run, err
	}

	var distance *float64
	if next == model.StatusFinished {
		// Held through evaluation so each stop sees the athlete's aggregates
		// as they stand right after it. Lock order is run then athlete.
		unlockAthlete := s.athleteLocks.Lock(run.AthleteID)
		defer unlockAthlete()

		d, err := s.runDistance(ctx, runID)
		if err != nil {
			return run, err
		}
		distance = &d
	}

	updated, err := st.TransitionRun(ctx, runID, run.Status, next, distance)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			metrics.RecordTransitionRejected(string(action), string(updated.Status))
		}
		return updated, err
	}
	metrics.RecordRunTransition(string(action))
	s.logger.Info(ctx, "run transitioned",
		logger.String("run", runID),
		logger.String("action", string(action)),
		logger.String("status", string(updated.Status)),
	)

	if updated.Status == model.StatusFinished {
		metrics.RecordRunDistance(updated.Distance)
		// The run is already finished at this point, so evaluation failures
		// are logged rather than returned.
		if _, err := s.evaluateLocked(ctx, st, updated.AthleteID); err != nil {
			s.logger.Error(ctx, "challenge evaluation failed",
				logger.String("run", runID),
				logger.String("athlete", updated.AthleteID),
				logger.Error(err),
			)
		}
	}
	return updated, nil
}

// runDistance sums the great-circle legs of the run's positions in arrival order.
func (s *Service) runDistance(ctx context.Context, runID string) (float64, error) {
	st, err := s.repo()
	if err != nil {
		return 0, err
	}
	positions, err := st.ListPositions(ctx, runID)
	if err != nil {
		return 0, err
	}
	points := make([]geo.Point, len(positions))
	for i, p := range positions {
		points[i] = geo.Point{Lat: p.Latitude, Lon: p.Longitude}
	}
	return geo.PathLength(points), nil
}
