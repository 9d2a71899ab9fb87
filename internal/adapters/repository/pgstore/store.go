// Package pgstore is the PostgreSQL-backed repository.Store, built on gorm.
//
// Uniqueness is enforced by the schema: the collector ledger has a composite
// primary key and challenges carry a unique (athlete_id, full_name) index, so
// concurrent writers from several processes still cannot duplicate a row.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/stride/internal/adapters/repository"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/metrics"
)

// Store implements repository.Store over a gorm connection.
type Store struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string
}

var _ repository.Store = (*Store)(nil)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the time source used for created_at and date_joined.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how entity ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Config returns the gorm configuration the store opens connections with.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
}

// Open connects to dsn, migrates the schema and returns the store.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: empty database url", model.ErrValidation)
	}
	db, err := gorm.Open(pgdriver.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return New(ctx, db, opts...)
}

// New wraps an existing connection and migrates the schema.
func New(ctx context.Context, db *gorm.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.WithContext(ctx).AutoMigrate(migrated()...); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// translate maps gorm errors onto the domain sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", model.ErrDuplicate, what)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// track records latency and, for unexpected failures, an error count.
func track(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !errors.Is(*err, model.ErrNotFound) &&
		!errors.Is(*err, model.ErrDuplicate) && !errors.Is(*err, model.ErrInvalidTransition) {
		metrics.RecordStoreError(op)
	}
}

func pageScope(p model.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Size < 1 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Size)
	}
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Runs.

func (s *Store) CreateRun(ctx context.Context, run model.Run) (_ model.Run, err error) {
	defer track("create_run", time.Now(), &err)

	row := runRow{
		ID:        run.ID,
		AthleteID: run.AthleteID,
		Status:    string(run.Status),
		Distance:  run.Distance,
		Comment:   run.Comment,
		CreatedAt: run.CreatedAt,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if row.Status == "" {
		row.Status = string(model.StatusInit)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Run{}, translate(err, "run "+row.ID)
	}
	return row.toModel(), nil
}

func (s *Store) GetRun(ctx context.Context, id string) (_ model.Run, err error) {
	defer track("get_run", time.Now(), &err)

	var row runRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.Run{}, translate(err, "run "+id)
	}
	return row.toModel(), nil
}

func (s *Store) ListRuns(ctx context.Context, f model.RunFilter) (_ []model.Run, _ int, err error) {
	defer track("list_runs", time.Now(), &err)

	q := s.db.WithContext(ctx).Model(&runRow{})
	if f.AthleteID != "" {
		q = q.Where("athlete_id = ?", f.AthleteID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count runs")
	}

	order := "created_at ASC, id ASC"
	if f.Descending {
		order = "created_at DESC, id DESC"
	}
	var rows []runRow
	if err := q.Scopes(pageScope(f.Page)).Order(order).Find(&rows).Error; err != nil {
		return nil, 0, translate(err, "list runs")
	}
	out := make([]model.Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, int(total), nil
}

// TransitionRun updates with a status guard in the WHERE clause, so two
// racing callers cannot both succeed. A stop also locks the athlete row.
func (s *Store) TransitionRun(ctx context.Context, id string, from, to model.RunStatus, distance *float64) (_ model.Run, err error) {
	defer track("transition_run", time.Now(), &err)

	var out model.Run
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if to == model.StatusFinished {
			// Finishing runs of one athlete commit one at a time.
			var owner runRow
			if err := tx.Select("athlete_id").Where("id = ?", id).First(&owner).Error; err != nil {
				return translate(err, "run "+id)
			}
			var a athleteRow
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", owner.AthleteID).
				First(&a).Error; err != nil {
				return translate(err, "athlete "+owner.AthleteID)
			}
		}

		updates := map[string]any{"status": string(to)}
		if distance != nil {
			updates["distance"] = *distance
		}
		res := tx.Model(&runRow{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(updates)
		if res.Error != nil {
			return translate(res.Error, "transition run "+id)
		}

		var row runRow
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err, "run "+id)
		}
		out = row.toModel()
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: run %s is %q, expected %q", model.ErrInvalidTransition, id, row.Status, from)
		}
		return nil
	})
	return out, err
}

func (s *Store) CountRuns(ctx context.Context, athleteID string, status model.RunStatus) (_ int, err error) {
	defer track("count_runs", time.Now(), &err)

	var n int64
	err = s.db.WithContext(ctx).Model(&runRow{}).
		Where("athlete_id = ? AND status = ?", athleteID, string(status)).
		Count(&n).Error
	if err != nil {
		return 0, translate(err, "count runs")
	}
	return int(n), nil
}

func (s *Store) SumDistance(ctx context.Context, athleteID string) (_ float64, err error) {
	defer track("sum_distance", time.Now(), &err)

	var total float64
	err = s.db.WithContext(ctx).Model(&runRow{}).
		Select("COALESCE(SUM(distance), 0)").
		Where("athlete_id = ?", athleteID).
		Scan(&total).Error
	if err != nil {
		return 0, translate(err, "sum distance")
	}
	return total, nil
}

func (s *Store) CountRunsByStatus(ctx context.Context) (_ map[model.RunStatus]int, err error) {
	defer track("count_runs_by_status", time.Now(), &err)

	var rows []struct {
		Status string
		N      int
	}
	err = s.db.WithContext(ctx).Model(&runRow{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "count runs by status")
	}
	out := map[model.RunStatus]int{
		model.StatusInit:       0,
		model.StatusInProgress: 0,
		model.StatusFinished:   0,
	}
	for _, r := range rows {
		out[model.RunStatus(r.Status)] = r.N
	}
	return out, nil
}

// Positions.

func (s *Store) CreatePosition(ctx context.Context, p model.Position) (_ model.Position, err error) {
	defer track("create_position", time.Now(), &err)

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&runRow{}).Where("id = ?", p.RunID).Count(&n).Error; err != nil {
		return model.Position{}, translate(err, "run "+p.RunID)
	}
	if n == 0 {
		return model.Position{}, fmt.Errorf("%w: run %s", model.ErrNotFound, p.RunID)
	}

	row := positionRow{
		ID:        p.ID,
		RunID:     p.RunID,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = s.now()
	}
	if err := db.Create(&row).Error; err != nil {
		return model.Position{}, translate(err, "position "+row.ID)
	}
	return row.toModel(), nil
}

func (s *Store) ListPositions(ctx context.Context, runID string) (_ []model.Position, err error) {
	defer track("list_positions", time.Now(), &err)

	var rows []positionRow
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list positions")
	}
	out := make([]model.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) DeletePosition(ctx context.Context, id string) (err error) {
	defer track("delete_position", time.Now(), &err)

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&positionRow{})
	if res.Error != nil {
		return translate(res.Error, "position "+id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: position %s", model.ErrNotFound, id)
	}
	return nil
}

// Collectibles.

func (s *Store) CreateCollectible(ctx context.Context, item model.CollectibleItem) (_ model.CollectibleItem, err error) {
	defer track("create_collectible", time.Now(), &err)

	row := collectibleRow{
		ID:         item.ID,
		Name:       item.Name,
		UID:        item.UID,
		Latitude:   item.Latitude,
		Longitude:  item.Longitude,
		PictureRef: item.PictureRef,
		Value:      item.Value,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.CollectibleItem{}, translate(err, "collectible uid "+row.UID)
	}
	return row.toModel(), nil
}

func (s *Store) GetCollectible(ctx context.Context, id string) (_ model.CollectibleItem, err error) {
	defer track("get_collectible", time.Now(), &err)

	var row collectibleRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.CollectibleItem{}, translate(err, "collectible "+id)
	}
	return row.toModel(), nil
}

func (s *Store) ListCollectibles(ctx context.Context) (_ []model.CollectibleItem, err error) {
	defer track("list_collectibles", time.Now(), &err)

	var rows []collectibleRow
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate(err, "list collectibles")
	}
	out := make([]model.CollectibleItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// AddCollector inserts with ON CONFLICT DO NOTHING; a zero row count means
// the athlete already held the item.
func (s *Store) AddCollector(ctx context.Context, itemID, athleteID string) (_ bool, err error) {
	defer track("add_collector", time.Now(), &err)

	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&collectibleRow{}).Where("id = ?", itemID).Count(&n).Error; err != nil {
		return false, translate(err, "collectible "+itemID)
	}
	if n == 0 {
		return false, fmt.Errorf("%w: collectible %s", model.ErrNotFound, itemID)
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&collectorRow{ItemID: itemID, AthleteID: athleteID})
	if res.Error != nil {
		return false, translate(res.Error, "add collector")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListCollectors(ctx context.Context, itemID string) (_ []string, err error) {
	defer track("list_collectors", time.Now(), &err)

	if _, err := s.GetCollectible(ctx, itemID); err != nil {
		return nil, err
	}
	var ids []string
	err = s.db.WithContext(ctx).Model(&collectorRow{}).
		Where("item_id = ?", itemID).
		Order("created_at ASC, athlete_id ASC").
		Pluck("athlete_id", &ids).Error
	if err != nil {
		return nil, translate(err, "list collectors")
	}
	return ids, nil
}

func (s *Store) ListCollected(ctx context.Context, athleteID string) (_ []model.CollectibleItem, err error) {
	defer track("list_collected", time.Now(), &err)

	var rows []collectibleRow
	err = s.db.WithContext(ctx).
		Joins("JOIN collectible_collectors cc ON cc.item_id = collectibles.id").
		Where("cc.athlete_id = ?", athleteID).
		Order("collectibles.created_at ASC, collectibles.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "list collected")
	}
	out := make([]model.CollectibleItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Challenges.

func (s *Store) ChallengeExists(ctx context.Context, athleteID, fullName string) (_ bool, err error) {
	defer track("challenge_exists", time.Now(), &err)

	var n int64
	err = s.db.WithContext(ctx).Model(&challengeRow{}).
		Where("athlete_id = ? AND full_name = ?", athleteID, fullName).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "challenge exists")
	}
	return n > 0, nil
}

func (s *Store) CreateChallenge(ctx context.Context, c model.Challenge) (_ model.Challenge, err error) {
	defer track("create_challenge", time.Now(), &err)

	row := challengeRow{ID: c.ID, AthleteID: c.AthleteID, FullName: c.FullName}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Challenge{}, translate(err, fmt.Sprintf("challenge %q for athlete %s", c.FullName, c.AthleteID))
	}
	return row.toModel(), nil
}

func (s *Store) ListChallenges(ctx context.Context, athleteID string) (_ []model.Challenge, err error) {
	defer track("list_challenges", time.Now(), &err)

	q := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if athleteID != "" {
		q = q.Where("athlete_id = ?", athleteID)
	}
	var rows []challengeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, "list challenges")
	}
	out := make([]model.Challenge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Athletes.

func (s *Store) CreateAthlete(ctx context.Context, a model.Athlete) (_ model.Athlete, err error) {
	defer track("create_athlete", time.Now(), &err)

	row := athleteRow{
		ID:          a.ID,
		Username:    a.Username,
		UsernameKey: strings.ToLower(a.Username),
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		IsStaff:     a.IsStaff,
		DateJoined:  a.DateJoined,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	if row.DateJoined.IsZero() {
		row.DateJoined = s.now()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Athlete{}, translate(err, "username "+a.Username)
	}
	return row.toModel(), nil
}

func (s *Store) GetAthlete(ctx context.Context, id string) (_ model.Athlete, err error) {
	defer track("get_athlete", time.Now(), &err)

	var row athleteRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.Athlete{}, translate(err, "athlete "+id)
	}
	return row.toModel(), nil
}

func (s *Store) ListAthletes(ctx context.Context, f model.AthleteFilter) (_ []model.Athlete, _ int, err error) {
	defer track("list_athletes", time.Now(), &err)

	q := s.db.WithContext(ctx).Model(&athleteRow{})
	switch strings.ToLower(f.Type) {
	case model.AthleteTypeCoach:
		q = q.Where("is_staff = ?", true)
	case model.AthleteTypeAthlete:
		q = q.Where("is_staff = ?", false)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pat := "%" + escapeLike(search) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pat, pat)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count athletes")
	}
	var rows []athleteRow
	if err := q.Scopes(pageScope(f.Page)).Order("date_joined ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, 0, translate(err, "list athletes")
	}
	out := make([]model.Athlete, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, int(total), nil
}

func (s *Store) GetAthleteInfo(ctx context.Context, athleteID string) (_ model.AthleteInfo, err error) {
	defer track("get_athlete_info", time.Now(), &err)

	var row athleteInfoRow
	if err := s.db.WithContext(ctx).Where("athlete_id = ?", athleteID).First(&row).Error; err != nil {
		return model.AthleteInfo{}, translate(err, "athlete info "+athleteID)
	}
	return row.toModel(), nil
}

func (s *Store) SaveAthleteInfo(ctx context.Context, info model.AthleteInfo) (_ model.AthleteInfo, err error) {
	defer track("save_athlete_info", time.Now(), &err)

	if _, err := s.GetAthlete(ctx, info.AthleteID); err != nil {
		return model.AthleteInfo{}, err
	}
	row := athleteInfoRow{AthleteID: info.AthleteID, Goals: info.Goals, Weight: info.Weight}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "athlete_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"goals", "weight", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return model.AthleteInfo{}, translate(err, "save athlete info")
	}
	return row.toModel(), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
