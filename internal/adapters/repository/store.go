// Package repository defines the persistence boundary of the run engine and
// its in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/stride/internal/domain/model"
)

// RunStore persists runs and answers the aggregates the engine needs.
type RunStore interface {
	CreateRun(ctx context.Context, run model.Run) (model.Run, error)
	// GetRun returns model.ErrNotFound for unknown ids.
	GetRun(ctx context.Context, id string) (model.Run, error)
	// ListRuns returns one page of runs and the total number matching f.
	ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, int, error)
	// TransitionRun moves a run from one status to another as a single
	// compare-and-set. It fails with model.ErrInvalidTransition when the
	// stored status is not from. A non-nil distance is written in the same step.
	TransitionRun(ctx context.Context, id string, from, to model.RunStatus, distance *float64) (model.Run, error)
	CountRuns(ctx context.Context, athleteID string, status model.RunStatus) (int, error)
	// SumDistance totals distance over every run of the athlete.
	SumDistance(ctx context.Context, athleteID string) (float64, error)
	// CountRunsByStatus reports the number of runs per status across all athletes.
	CountRunsByStatus(ctx context.Context) (map[model.RunStatus]int, error)
}

// PositionStore persists GPS samples.
type PositionStore interface {
	// CreatePosition assigns ID and Seq and stores the sample.
	CreatePosition(ctx context.Context, p model.Position) (model.Position, error)
	// ListPositions returns the run's samples in arrival order.
	ListPositions(ctx context.Context, runID string) ([]model.Position, error)
	DeletePosition(ctx context.Context, id string) error
}

// CollectibleStore persists collectible items and their collectors.
type CollectibleStore interface {
	// CreateCollectible fails with model.ErrDuplicate when the uid is taken.
	CreateCollectible(ctx context.Context, item model.CollectibleItem) (model.CollectibleItem, error)
	GetCollectible(ctx context.Context, id string) (model.CollectibleItem, error)
	ListCollectibles(ctx context.Context) ([]model.CollectibleItem, error)
	// AddCollector is idempotent; added reports whether the pair was new.
	AddCollector(ctx context.Context, itemID, athleteID string) (added bool, err error)
	ListCollectors(ctx context.Context, itemID string) ([]string, error)
	ListCollected(ctx context.Context, athleteID string) ([]model.CollectibleItem, error)
}

// ChallengeStore persists the achievement ledger.
type ChallengeStore interface {
	ChallengeExists(ctx context.Context, athleteID, fullName string) (bool, error)
	// CreateChallenge fails with model.ErrDuplicate when the athlete already
	// holds a challenge with the same full name.
	CreateChallenge(ctx context.Context, c model.Challenge) (model.Challenge, error)
	// ListChallenges returns every challenge, or only the athlete's when
	// athleteID is not empty.
	ListChallenges(ctx context.Context, athleteID string) ([]model.Challenge, error)
}

// AthleteStore persists athletes and their profile info.
type AthleteStore interface {
	// CreateAthlete fails with model.ErrDuplicate when the username is taken.
	CreateAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	GetAthlete(ctx context.Context, id string) (model.Athlete, error)
	ListAthletes(ctx context.Context, f model.AthleteFilter) ([]model.Athlete, int, error)
	// GetAthleteInfo returns model.ErrNotFound when no info was saved yet.
	GetAthleteInfo(ctx context.Context, athleteID string) (model.AthleteInfo, error)
	SaveAthleteInfo(ctx context.Context, info model.AthleteInfo) (model.AthleteInfo, error)
}

// Store is the full persistence boundary.
type Store interface {
	RunStore
	PositionStore
	CollectibleStore
	ChallengeStore
	AthleteStore

	Close() error
}
