package service

import (
	"context"
	"errors"

	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/domain/achievement"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// EvaluateChallenges checks every rule against the athlete's current
// aggregates and records the challenges newly earned. Rules already held are
// skipped; a uniqueness conflict from the store counts as already held.
func (s *Service) EvaluateChallenges(ctx context.Context, athleteID string) ([]model.Challenge, error) {
	st, err := s.repo()
	if err != nil {
		return nil, err
	}

	unlock := s.athleteLocks.Lock(athleteID)
	defer unlock()
	return s.evaluateLocked(ctx, st, athleteID)
}

// evaluateLocked expects the caller to hold the athlete's lock.
func (s *Service) evaluateLocked(ctx context.Context, st repository.Store, athleteID string) ([]model.Challenge, error) {
	finished, err := st.CountRuns(ctx, athleteID, model.StatusFinished)
	if err != nil {
		return nil, err
	}
	total, err := st.SumDistance(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	stats := achievement.Stats{FinishedRuns: finished, TotalDistanceKM: total}

	var awarded []model.Challenge
	for _, rule := range s.evaluator.Qualifying(stats) {
		held, err := st.ChallengeExists(ctx, athleteID, rule.Name())
		if err != nil {
			return awarded, err
		}
		if held {
			continue
		}

		c, err := st.CreateChallenge(ctx, model.Challenge{FullName: rule.Name(), AthleteID: athleteID})
		if errors.Is(err, model.ErrDuplicate) {
			metrics.RecordChallengeDuplicate()
			continue
		}
		if err != nil {
			return awarded, err
		}

		metrics.RecordChallengeAwarded(rule.Key())
		s.logger.Info(ctx, "challenge awarded",
			logger.String("athlete", athleteID),
			logger.String("challenge", c.FullName),
			logger.Int("finishedRuns", finished),
			logger.Float64("totalDistanceKm", total),
		)
		awarded = append(awarded, c)
	}
	return awarded, nil
}

// ListChallenges returns the athlete's challenges, or all of them when
// athleteID is empty.
func (s *Service) ListChallenges(ctx context.Context, athleteID string) ([]model.Challenge, error) {
	st, err := s.repo()
	if err != nil {
		return nil, err
	}
	return st.ListChallenges(ctx, athleteID)
}
