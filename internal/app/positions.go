package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/stride/internal/domain/geo"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// PositionInput is one GPS sample submitted for a run. A zero Timestamp is
// replaced with the arrival time.
type PositionInput struct {
	RunID     string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// RecordPosition appends a sample to an in-progress run and awards every
// collectible within the proximity radius to the run's athlete. Discovery
// errors are logged, not returned.
func (s *Service) RecordPosition(ctx context.Context, in PositionInput) (model.Position, error) {
	st, err := s.repo()
	if err != nil {
		return model.Position{}, err
	}
	if err := model.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		metrics.RecordPositionRejected("validation")
		return model.Position{}, err
	}

	unlock := s.runLocks.Lock(in.RunID)
	defer unlock()

	run, err := st.GetRun(ctx, in.RunID)
	if err != nil {
		metrics.RecordPositionRejected("not_found")
		return model.Position{}, err
	}
	if run.Status != model.StatusInProgress {
		metrics.RecordPositionRejected("run_state")
		return model.Position{}, fmt.Errorf("%w: run %s is %q", model.ErrInvalidRunState, run.ID, run.Status)
	}

	p, err := st.CreatePosition(ctx, model.Position{
		RunID:     in.RunID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Timestamp: in.Timestamp,
	})
	if err != nil {
		return model.Position{}, err
	}
	metrics.RecordPositionRecorded()

	// The sample is stored; failing the request now would invite a retry
	// that stores it twice.
	if err := s.collectNearby(ctx, p, run.AthleteID); err != nil {
		s.logger.Error(ctx, "collectible discovery failed",
			logger.String("run", run.ID),
			logger.String("position", p.ID),
			logger.Error(err),
		)
	}
	return p, nil
}

// collectNearby adds the athlete to the collector set of every item closer
// than the proximity radius.
func (s *Service) collectNearby(ctx context.Context, p model.Position, athleteID string) error {
	st, err := s.repo()
	if err != nil {
		return err
	}
	start := time.Now()
	defer func() {
		metrics.RecordProximityCheck(float64(time.Since(start).Microseconds()) / 1000)
	}()

	items, err := st.ListCollectibles(ctx)
	if err != nil {
		return err
	}
	for _, item := range s.matcher.Match(geo.Point{Lat: p.Latitude, Lon: p.Longitude}, items) {
		added, err := st.AddCollector(ctx, item.ID, athleteID)
		if err != nil {
			return err
		}
		if added {
			metrics.RecordCollectibleAwarded()
			s.logger.Info(ctx, "collectible collected",
				logger.String("athlete", athleteID),
				logger.String("item", item.ID),
				logger.String("uid", item.UID),
			)
		}
	}
	return nil
}

// ListPositions returns a run's samples in arrival order.
func (s *Service) ListPositions(ctx context.Context, runID string) ([]model.Position, error) {
	st, err := s.repo()
	if err != nil {
		return nil, err
	}
	if _, err := st.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return st.ListPositions(ctx, runID)
}

// DeletePosition removes one sample. A finished run keeps the distance
// computed when it stopped.
func (s *Service) DeletePosition(ctx context.Context, id string) error {
	st, err := s.repo()
	if err != nil {
		return err
	}
	return st.DeletePosition(ctx, id)
}
