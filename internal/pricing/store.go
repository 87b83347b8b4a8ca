package pricing

import (
	"sync"

	"RatePulse/internal/domain/models"
)

// stateEntry owns one bucket's demand state. The entry mutex serializes filter
// updates; reads of a settled state copy the struct under the same lock.
type stateEntry struct {
	mu sync.Mutex
	st models.DemandState
}

// StateStore holds per-bucket demand state. Buckets are independent, so
// cross-bucket operations proceed in parallel; only same-bucket updates
// contend on the entry lock.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]*stateEntry
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{entries: make(map[string]*stateEntry)}
}

// entry returns the state entry for key, creating it when create is set.
func (s *StateStore) entry(key string, create bool) (*stateEntry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok || !create {
		return e, ok
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[key]; ok {
		return e, true
	}
	e = &stateEntry{}
	s.entries[key] = e
	return e, true
}

// Get returns a copy of the bucket's state.
func (s *StateStore) Get(b models.Bucket) (models.DemandState, bool) {
	e, ok := s.entry(b.Key(), false)
	if !ok {
		return models.DemandState{}, false
	}
	e.mu.Lock()
	st := e.st
	e.mu.Unlock()
	if st.Steps == 0 {
		return models.DemandState{}, false
	}
	return st, true
}

// Range calls fn for every seeded bucket with a copy of its state.
// Iteration stops when fn returns false.
func (s *StateStore) Range(fn func(key string, st models.DemandState) bool) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	for _, k := range keys {
		e, ok := s.entry(k, false)
		if !ok {
			continue
		}
		e.mu.Lock()
		st := e.st
		e.mu.Unlock()
		if st.Steps == 0 {
			continue
		}
		if !fn(k, st) {
			return
		}
	}
}

// Restore installs a previously saved state for key. An already seeded bucket
// keeps its live state; restore never clobbers fresher filter output.
func (s *StateStore) Restore(key string, st models.DemandState) {
	if st.Steps == 0 {
		return
	}
	e, _ := s.entry(key, true)
	e.mu.Lock()
	if e.st.Steps == 0 {
		e.st = st
	}
	e.mu.Unlock()
}

// Len returns the number of seeded buckets.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Seeded reports whether at least one bucket has state.
func (s *StateStore) Seeded() bool { return s.Len() > 0 }
