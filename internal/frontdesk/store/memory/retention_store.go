package memory

import (
	"context"
	"sync"
	"time"
)

// RetentionStore is an in-memory dataset for exercising the purge steps
// without SQLite. FailOn makes one step return an error.
type RetentionStore struct {
	mu         sync.Mutex
	banned     map[int64]bool  // visitor id -> banned
	visits     map[int64]visit // visit id -> visit
	dependents map[int64]int64 // dependent id -> visit id
	failures   map[int]error   // step (1-3) -> error
	calls      []string
	nextDepID  int64
}

type visit struct {
	visitorID int64
	entry     time.Time
}

func NewRetentionStore() *RetentionStore {
	return &RetentionStore{
		banned:     make(map[int64]bool),
		visits:     make(map[int64]visit),
		dependents: make(map[int64]int64),
		failures:   make(map[int]error),
	}
}

func (s *RetentionStore) AddVisitor(id int64, banned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banned[id] = banned
}

// AddVisit records a visit with n dependents attached.
func (s *RetentionStore) AddVisit(id, visitorID int64, entry time.Time, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits[id] = visit{visitorID: visitorID, entry: entry}
	for i := 0; i < n; i++ {
		s.nextDepID++
		s.dependents[s.nextDepID] = id
	}
}

// FailOn makes step 1 (dependents), 2 (visits) or 3 (visitors) fail with err.
func (s *RetentionStore) FailOn(step int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[step] = err
}

// Sizes reports the remaining visitors, visits and dependents.
func (s *RetentionStore) Sizes() (visitors, visits, dependents int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.banned), len(s.visits), len(s.dependents)
}

// Calls lists the steps invoked so far, in order. Test-only helper.
func (s *RetentionStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *RetentionStore) DeleteExpiredDependents(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "dependents")
	if err := s.failures[1]; err != nil {
		return 0, err
	}

	var n int64
	for id, visitID := range s.dependents {
		if v, ok := s.visits[visitID]; ok && v.entry.Before(cutoff) {
			delete(s.dependents, id)
			n++
		}
	}
	return n, nil
}

func (s *RetentionStore) DeleteExpiredVisits(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "visits")
	if err := s.failures[2]; err != nil {
		return 0, err
	}

	var n int64
	for id, v := range s.visits {
		if v.entry.Before(cutoff) {
			delete(s.visits, id)
			n++
		}
	}
	return n, nil
}

func (s *RetentionStore) DeleteOrphanedVisitors(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "visitors")
	if err := s.failures[3]; err != nil {
		return 0, err
	}

	has := make(map[int64]bool, len(s.visits))
	for _, v := range s.visits {
		has[v.visitorID] = true
	}

	var n int64
	for id, banned := range s.banned {
		if !banned && !has[id] {
			delete(s.banned, id)
			n++
		}
	}
	return n, nil
}
