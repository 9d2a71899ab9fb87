// Package service implements the run engine behind the HTTP API: the run
// lifecycle, position ingestion with collectible discovery, and challenge
// evaluation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/adapters/repository/pgstore"
	"github.com/okian/stride/internal/config"
	"github.com/okian/stride/internal/domain/achievement"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/proximity"
	"github.com/okian/stride/pkg/logger"
	"github.com/okian/stride/pkg/metrics"
)

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("service not started")

// CompanyDetails is the static company card served to clients.
type CompanyDetails struct {
	CompanyName string `json:"company_name"`
	Slogan      string `json:"slogan"`
	Contacts    string `json:"contacts"`
}

// Service implements the API dependencies for the run engine.
type Service struct {
	mu sync.RWMutex

	store       repository.Store
	ownsStore   bool
	storeDriver string
	databaseURL string

	matcher   *proximity.Matcher
	evaluator *achievement.Evaluator

	// stop and record_position on one run are serialized by runLocks;
	// a stop and the challenge evaluation after it by athleteLocks.
	runLocks     *keyedMutex
	athleteLocks *keyedMutex

	defaultPageSize int
	maxPageSize     int
	company         CompanyDetails

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a store. The service does not close injected stores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreDriver selects the store Start opens when none was injected.
func WithStoreDriver(driver, databaseURL string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
		}
		s.databaseURL = databaseURL
	}
}

// WithProximityRadius sets the collectible activation radius.
func WithProximityRadius(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.matcher = proximity.NewMatcher(proximity.WithRadiusKM(km))
		}
	}
}

// WithChallengeRules replaces the default achievement rules.
func WithChallengeRules(rules ...achievement.Rule) Option {
	return func(s *Service) {
		if len(rules) > 0 {
			s.evaluator = achievement.NewEvaluator(achievement.WithRules(rules...))
		}
	}
}

// WithPageSizes sets the default and maximum list page sizes.
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if defaultSize > 0 && maxSize >= defaultSize {
			s.defaultPageSize = defaultSize
			s.maxPageSize = maxSize
		}
	}
}

// WithCompanyDetails sets the company card.
func WithCompanyDetails(d CompanyDetails) Option {
	return func(s *Service) {
		s.company = d
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// FromConfig maps a loaded Config onto service options.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithStoreDriver(cfg.StoreDriver, cfg.DatabaseURL),
		WithProximityRadius(cfg.ProximityRadiusKM),
		WithChallengeRules(
			achievement.RunCount{Milestone: cfg.RunCountMilestone, Title: cfg.RunCountChallenge},
			achievement.Distance{MilestoneKM: cfg.DistanceMilestoneKM, Title: cfg.DistanceChallenge},
		),
		WithPageSizes(cfg.DefaultPageSize, cfg.MaxPageSize),
		WithCompanyDetails(CompanyDetails{
			CompanyName: cfg.CompanyName,
			Slogan:      cfg.Slogan,
			Contacts:    cfg.Contacts,
		}),
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	cfg := config.New()
	s := &Service{
		storeDriver:     config.DriverMemory,
		matcher:         proximity.NewMatcher(),
		evaluator:       achievement.NewEvaluator(),
		runLocks:        newKeyedMutex(),
		athleteLocks:    newKeyedMutex(),
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
		company: CompanyDetails{
			CompanyName: cfg.CompanyName,
			Slogan:      cfg.Slogan,
			Contacts:    cfg.Contacts,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store when none was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting run service...", logger.String("store", s.storeDriver))

	if s.store == nil {
		switch s.storeDriver {
		case config.DriverPostgres:
			st, err := pgstore.Open(ctx, s.databaseURL)
			if err != nil {
				return fmt.Errorf("open postgres store: %w", err)
			}
			s.store = st
		case config.DriverMemory:
			s.store = repository.NewMemoryStore()
		default:
			return fmt.Errorf("%w: unknown store driver %q", model.ErrValidation, s.storeDriver)
		}
		s.ownsStore = true
	}

	s.started = true
	s.logger.Info(ctx, "run service started",
		logger.Float64("proximityRadiusKm", s.matcher.RadiusKM()),
		logger.Int("rules", len(s.evaluator.Rules())),
	)
	return nil
}

// Stop releases the store if Start opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping run service...")

	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "run service stopped")
}

// repo returns the active store.
func (s *Service) repo() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// page clamps a page request to the configured sizes.
func (s *Service) page(p model.Page) model.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = s.defaultPageSize
	}
	if p.Size > s.maxPageSize {
		p.Size = s.maxPageSize
	}
	return p
}

// CompanyDetails returns the configured company card.
func (s *Service) CompanyDetails() CompanyDetails {
	return s.company
}

// RefreshRunMetrics publishes the per-status run gauges.
func (s *Service) RefreshRunMetrics(ctx context.Context) error {
	st, err := s.repo()
	if err != nil {
		return err
	}
	counts, err := st.CountRunsByStatus(ctx)
	if err != nil {
		return err
	}
	for status, n := range counts {
		metrics.UpdateRunsByStatus(string(status), n)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	stats := map[string]any{
		"started":           s.started,
		"storeDriver":       s.storeDriver,
		"proximityRadiusKm": s.matcher.RadiusKM(),
		"lockedRuns":        s.runLocks.size(),
		"lockedAthletes":    s.athleteLocks.size(),
	}
	started := s.started
	s.mu.RUnlock()

	if !started {
		return stats
	}
	st, err := s.repo()
	if err != nil {
		return stats
	}
	counts, err := st.CountRunsByStatus(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats: counting runs failed", logger.Error(err))
		return stats
	}
	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
		metrics.UpdateRunsByStatus(string(status), n)
	}
	stats["runsByStatus"] = byStatus
	return stats
}
