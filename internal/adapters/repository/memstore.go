package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/pkg/metrics"
)

// MemoryStore is an in-memory Store. All state lives behind one RWMutex, so
// every method is linearizable on its own.
type MemoryStore struct {
	mu sync.RWMutex

	runs      map[string]model.Run
	runOrder  []string
	positions map[string][]model.Position // run id -> samples in arrival order
	posRun    map[string]string           // position id -> run id
	seq       int64

	items      map[string]model.CollectibleItem
	itemOrder  []string
	itemByUID  map[string]string
	collectors map[string]map[string]struct{} // item id -> athlete ids
	collOrder  map[string][]string            // item id -> athlete ids in award order

	challenges  []model.Challenge
	challengeBy map[string]map[string]struct{} // athlete id -> full names

	athletes     map[string]model.Athlete
	athleteOrder []string
	usernames    map[string]string
	infos        map[string]model.AthleteInfo

	now   func() time.Time
	newID func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		runs:        make(map[string]model.Run),
		positions:   make(map[string][]model.Position),
		posRun:      make(map[string]string),
		items:       make(map[string]model.CollectibleItem),
		itemByUID:   make(map[string]string),
		collectors:  make(map[string]map[string]struct{}),
		collOrder:   make(map[string][]string),
		challengeBy: make(map[string]map[string]struct{}),
		athletes:    make(map[string]model.Athlete),
		usernames:   make(map[string]string),
		infos:       make(map[string]model.AthleteInfo),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Runs.

func (s *MemoryStore) CreateRun(_ context.Context, run model.Run) (model.Run, error) {
	defer observe("create_run", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = s.newID()
	}
	if _, exists := s.runs[run.ID]; exists {
		return model.Run{}, fmt.Errorf("%w: run %s", model.ErrDuplicate, run.ID)
	}
	if run.Status == "" {
		run.Status = model.StatusInit
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)
	return run, nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.Run, error) {
	defer observe("get_run", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("%w: run %s", model.ErrNotFound, id)
	}
	return run, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, f model.RunFilter) ([]model.Run, int, error) {
	defer observe("list_runs", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]model.Run, 0, len(s.runOrder))
	for _, id := range s.runOrder {
		r := s.runs[id]
		if f.AthleteID != "" && r.AthleteID != f.AthleteID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		matched = append(matched, r)
	}
	// runOrder is insertion order; stable sort keeps it as the tie-breaker.
	sort.SliceStable(matched, func(i, j int) bool {
		if f.Descending {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return paginate(matched, f.Page), len(matched), nil
}

func (s *MemoryStore) TransitionRun(_ context.Context, id string, from, to model.RunStatus, distance *float64) (model.Run, error) {
	defer observe("transition_run", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("%w: run %s", model.ErrNotFound, id)
	}
	if run.Status != from {
		return run, fmt.Errorf("%w: run %s is %q, expected %q", model.ErrInvalidTransition, id, run.Status, from)
	}
	run.Status = to
	if distance != nil {
		run.Distance = *distance
	}
	s.runs[id] = run
	return run, nil
}

func (s *MemoryStore) CountRuns(_ context.Context, athleteID string, status model.RunStatus) (int, error) {
	defer observe("count_runs", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.runs {
		if r.AthleteID == athleteID && r.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) SumDistance(_ context.Context, athleteID string) (float64, error) {
	defer observe("sum_distance", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, id := range s.runOrder {
		if r := s.runs[id]; r.AthleteID == athleteID {
			total += r.Distance
		}
	}
	return total, nil
}

func (s *MemoryStore) CountRunsByStatus(_ context.Context) (map[model.RunStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[model.RunStatus]int{
		model.StatusInit:       0,
		model.StatusInProgress: 0,
		model.StatusFinished:   0,
	}
	for _, r := range s.runs {
		out[r.Status]++
	}
	return out, nil
}

// Positions.

func (s *MemoryStore) CreatePosition(_ context.Context, p model.Position) (model.Position, error) {
	defer observe("create_position", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[p.RunID]; !ok {
		return model.Position{}, fmt.Errorf("%w: run %s", model.ErrNotFound, p.RunID)
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = s.now()
	}
	s.seq++
	p.Seq = s.seq
	s.positions[p.RunID] = append(s.positions[p.RunID], p)
	s.posRun[p.ID] = p.RunID
	return p, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, runID string) ([]model.Position, error) {
	defer observe("list_positions", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.positions[runID]
	out := make([]model.Position, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, id string) error {
	defer observe("delete_position", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	runID, ok := s.posRun[id]
	if !ok {
		return fmt.Errorf("%w: position %s", model.ErrNotFound, id)
	}
	list := s.positions[runID]
	for i := range list {
		if list[i].ID == id {
			s.positions[runID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	delete(s.posRun, id)
	return nil
}

// Collectibles.

func (s *MemoryStore) CreateCollectible(_ context.Context, item model.CollectibleItem) (model.CollectibleItem, error) {
	defer observe("create_collectible", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.UID != "" {
		if _, taken := s.itemByUID[item.UID]; taken {
			return model.CollectibleItem{}, fmt.Errorf("%w: collectible uid %s", model.ErrDuplicate, item.UID)
		}
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	s.items[item.ID] = item
	s.itemOrder = append(s.itemOrder, item.ID)
	if item.UID != "" {
		s.itemByUID[item.UID] = item.ID
	}
	return item, nil
}

func (s *MemoryStore) GetCollectible(_ context.Context, id string) (model.CollectibleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return model.CollectibleItem{}, fmt.Errorf("%w: collectible %s", model.ErrNotFound, id)
	}
	return item, nil
}

func (s *MemoryStore) ListCollectibles(_ context.Context) ([]model.CollectibleItem, error) {
	defer observe("list_collectibles", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CollectibleItem, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *MemoryStore) AddCollector(_ context.Context, itemID, athleteID string) (bool, error) {
	defer observe("add_collector", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return false, fmt.Errorf("%w: collectible %s", model.ErrNotFound, itemID)
	}
	set, ok := s.collectors[itemID]
	if !ok {
		set = make(map[string]struct{})
		s.collectors[itemID] = set
	}
	if _, seen := set[athleteID]; seen {
		return false, nil
	}
	set[athleteID] = struct{}{}
	s.collOrder[itemID] = append(s.collOrder[itemID], athleteID)
	return true, nil
}

func (s *MemoryStore) ListCollectors(_ context.Context, itemID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.items[itemID]; !ok {
		return nil, fmt.Errorf("%w: collectible %s", model.ErrNotFound, itemID)
	}
	out := make([]string, len(s.collOrder[itemID]))
	copy(out, s.collOrder[itemID])
	return out, nil
}

func (s *MemoryStore) ListCollected(_ context.Context, athleteID string) ([]model.CollectibleItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.CollectibleItem
	for _, id := range s.itemOrder {
		if _, ok := s.collectors[id][athleteID]; ok {
			out = append(out, s.items[id])
		}
	}
	return out, nil
}

// Challenges.

func (s *MemoryStore) ChallengeExists(_ context.Context, athleteID, fullName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.challengeBy[athleteID][fullName]
	return ok, nil
}

func (s *MemoryStore) CreateChallenge(_ context.Context, c model.Challenge) (model.Challenge, error) {
	defer observe("create_challenge", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	names, ok := s.challengeBy[c.AthleteID]
	if !ok {
		names = make(map[string]struct{})
		s.challengeBy[c.AthleteID] = names
	}
	if _, dup := names[c.FullName]; dup {
		return model.Challenge{}, fmt.Errorf("%w: challenge %q for athlete %s", model.ErrDuplicate, c.FullName, c.AthleteID)
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	names[c.FullName] = struct{}{}
	s.challenges = append(s.challenges, c)
	return c, nil
}

func (s *MemoryStore) ListChallenges(_ context.Context, athleteID string) ([]model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Challenge, 0, len(s.challenges))
	for _, c := range s.challenges {
		if athleteID == "" || c.AthleteID == athleteID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Athletes.

func (s *MemoryStore) CreateAthlete(_ context.Context, a model.Athlete) (model.Athlete, error) {
	defer observe("create_athlete", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(a.Username)
	if _, taken := s.usernames[key]; taken {
		return model.Athlete{}, fmt.Errorf("%w: username %s", model.ErrDuplicate, a.Username)
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.DateJoined.IsZero() {
		a.DateJoined = s.now()
	}
	s.athletes[a.ID] = a
	s.athleteOrder = append(s.athleteOrder, a.ID)
	s.usernames[key] = a.ID
	return a, nil
}

func (s *MemoryStore) GetAthlete(_ context.Context, id string) (model.Athlete, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.athletes[id]
	if !ok {
		return model.Athlete{}, fmt.Errorf("%w: athlete %s", model.ErrNotFound, id)
	}
	return a, nil
}

func (s *MemoryStore) ListAthletes(_ context.Context, f model.AthleteFilter) ([]model.Athlete, int, error) {
	defer observe("list_athletes", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []model.Athlete
	for _, id := range s.athleteOrder {
		a := s.athletes[id]
		switch strings.ToLower(f.Type) {
		case model.AthleteTypeCoach:
			if !a.IsStaff {
				continue
			}
		case model.AthleteTypeAthlete:
			if a.IsStaff {
				continue
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.FirstName), search) &&
			!strings.Contains(strings.ToLower(a.LastName), search) {
			continue
		}
		matched = append(matched, a)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].DateJoined.Before(matched[j].DateJoined)
	})
	return paginate(matched, f.Page), len(matched), nil
}

func (s *MemoryStore) GetAthleteInfo(_ context.Context, athleteID string) (model.AthleteInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[athleteID]
	if !ok {
		return model.AthleteInfo{}, fmt.Errorf("%w: athlete info %s", model.ErrNotFound, athleteID)
	}
	return info, nil
}

func (s *MemoryStore) SaveAthleteInfo(_ context.Context, info model.AthleteInfo) (model.AthleteInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.athletes[info.AthleteID]; !ok {
		return model.AthleteInfo{}, fmt.Errorf("%w: athlete %s", model.ErrNotFound, info.AthleteID)
	}
	s.infos[info.AthleteID] = info
	return info, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// paginate slices out one page; a zero page returns everything.
func paginate[T any](rows []T, p model.Page) []T {
	if p.Size < 1 {
		return rows
	}
	off := p.Offset()
	if off >= len(rows) {
		return []T{}
	}
	end := off + p.Size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[off:end]
}
