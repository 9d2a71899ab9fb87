package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/okian/stride/internal/domain/model"
)

func parse(t *testing.T, v any) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(v, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

func TestSchema_Tables(t *testing.T) {
	want := map[string]any{
		"runs":                   &runRow{},
		"positions":              &positionRow{},
		"collectibles":           &collectibleRow{},
		"collectible_collectors": &collectorRow{},
		"challenges":             &challengeRow{},
		"athletes":               &athleteRow{},
		"athlete_infos":          &athleteInfoRow{},
	}
	for table, row := range want {
		if got := parse(t, row).Table; got != table {
			t.Errorf("expected table %s, got %s", table, got)
		}
	}
	if len(migrated()) != len(want) {
		t.Errorf("expected %d migrated tables, got %d", len(want), len(migrated()))
	}
}

func TestSchema_PositionSeqIsDatabaseAssigned(t *testing.T) {
	s := parse(t, &positionRow{})
	f := s.LookUpField("Seq")
	if f == nil {
		t.Fatal("seq field missing")
	}
	if !f.AutoIncrement {
		t.Error("expected seq to auto-increment")
	}
	if !f.HasDefaultValue {
		t.Error("expected seq to be filled by the database")
	}
}

func TestSchema_CollectorPairIsPrimaryKey(t *testing.T) {
	s := parse(t, &collectorRow{})
	if len(s.PrimaryFields) != 2 {
		t.Fatalf("expected composite primary key, got %d fields", len(s.PrimaryFields))
	}
	if s.PrimaryFields[0].DBName != "item_id" || s.PrimaryFields[1].DBName != "athlete_id" {
		t.Errorf("unexpected primary key columns: %s, %s", s.PrimaryFields[0].DBName, s.PrimaryFields[1].DBName)
	}
}

func TestSchema_CollectibleUIDColumn(t *testing.T) {
	s := parse(t, &collectibleRow{})
	if f := s.LookUpField("UID"); f == nil || f.DBName != "uid" {
		t.Errorf("expected uid column, got %+v", f)
	}
}

func TestTranslate(t *testing.T) {
	if err := translate(nil, "x"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := translate(gorm.ErrRecordNotFound, "run r1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := translate(gorm.ErrDuplicatedKey, "uid"); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	boom := errors.New("connection reset")
	err := translate(boom, "list runs")
	if !errors.Is(err, boom) || errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected wrapped raw error, got %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"ann":    "ann",
		"50%":    `50\%`,
		"a_b":    `a\_b`,
		`back\s`: `back\\s`,
	}
	for in, want := range cases {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

// openTestStore connects to STRIDE_TEST_DATABASE_URL or skips.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("STRIDE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STRIDE_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	athlete := "athlete-" + uuid.NewString()

	run, err := s.CreateRun(ctx, model.Run{AthleteID: athlete})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != model.StatusInit {
		t.Fatalf("expected init, got %s", run.Status)
	}
	if _, err := s.TransitionRun(ctx, run.ID, model.StatusInProgress, model.StatusFinished, nil); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := s.TransitionRun(ctx, run.ID, model.StatusInit, model.StatusInProgress, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.CreatePosition(ctx, model.Position{RunID: run.ID, Latitude: float64(i), Longitude: 0}); err != nil {
			t.Fatalf("position: %v", err)
		}
	}
	list, err := s.ListPositions(ctx, run.ID)
	if err != nil || len(list) != 3 {
		t.Fatalf("expected 3 positions, got %d (%v)", len(list), err)
	}
	for i := 1; i < len(list); i++ {
		if list[i].Seq <= list[i-1].Seq || list[i].Latitude != float64(i) {
			t.Errorf("positions out of arrival order: %+v", list)
		}
	}

	const workers = 8
	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := 12.5
			if _, err := s.TransitionRun(ctx, run.ID, model.StatusInProgress, model.StatusFinished, &d); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("expected one winning stop, got %d", wins)
	}

	n, _ := s.CountRuns(ctx, athlete, model.StatusFinished)
	sum, _ := s.SumDistance(ctx, athlete)
	if n != 1 || sum != 12.5 {
		t.Errorf("unexpected aggregates: count=%d sum=%f", n, sum)
	}
}

func TestStore_UniquenessConstraints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	suffix := uuid.NewString()
	athlete := "athlete-" + suffix

	c := model.Challenge{FullName: "Run 10 times!", AthleteID: athlete}
	if _, err := s.CreateChallenge(ctx, c); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	if _, err := s.CreateChallenge(ctx, c); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	item, err := s.CreateCollectible(ctx, model.CollectibleItem{Name: "Flag", UID: "flag-" + suffix})
	if err != nil {
		t.Fatalf("create collectible: %v", err)
	}
	if _, err := s.CreateCollectible(ctx, model.CollectibleItem{Name: "Flag", UID: item.UID}); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	added, err := s.AddCollector(ctx, item.ID, athlete)
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = s.AddCollector(ctx, item.ID, athlete)
	if err != nil || added {
		t.Errorf("repeat add: added=%v err=%v", added, err)
	}

	if _, err := s.CreateAthlete(ctx, model.Athlete{Username: fmt.Sprintf("User-%s", suffix)}); err != nil {
		t.Fatalf("create athlete: %v", err)
	}
	if _, err := s.CreateAthlete(ctx, model.Athlete{Username: fmt.Sprintf("user-%s", suffix)}); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("expected case-insensitive ErrDuplicate, got %v", err)
	}
}
