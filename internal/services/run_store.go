package services

import (
	"sync"

	"salescleanse/pkg/contracts/domain"
)

// DefaultRunCapacity bounds the in-memory run history when no explicit
// capacity is configured.
const DefaultRunCapacity = 50

// RunOutcome bundles what one cleansing run produced: the full result,
// the artifact paths the exporter wrote, and the source the records came
// from ("json", "upload:<name>", "sheets").
type RunOutcome struct {
	Result *domain.Result `json:"result"`
	Files  []string       `json:"files,omitempty"`
	Source string         `json:"source,omitempty"`
}

// RunStore keeps the outcomes of the most recent cleansing runs in memory.
// When the store is full the oldest run is evicted. All methods are safe
// for concurrent use.
type RunStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string // run IDs, oldest first
	runs     map[string]*RunOutcome
}

// NewRunStore creates a run store holding up to capacity runs. A
// non-positive capacity falls back to DefaultRunCapacity.
func NewRunStore(capacity int) *RunStore {
	if capacity <= 0 {
		capacity = DefaultRunCapacity
	}
	return &RunStore{
		capacity: capacity,
		runs:     make(map[string]*RunOutcome),
	}
}

// Put records a run outcome, evicting the oldest stored run when the
// store is full. Outcomes without a run ID are ignored.
func (s *RunStore) Put(outcome *RunOutcome) {
	if outcome == nil || outcome.Result == nil || outcome.Result.RunID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := outcome.Result.RunID
	if _, exists := s.runs[id]; !exists {
		s.order = append(s.order, id)
	}
	s.runs[id] = outcome

	for len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, evicted)
	}
}

// Get retrieves a stored run by ID.
func (s *RunStore) Get(runID string) (*RunOutcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcome, ok := s.runs[runID]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent external modification of the stored entry.
	cp := *outcome
	return &cp, true
}

// List returns the stored runs, newest first.
func (s *RunStore) List() []*RunOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*RunOutcome, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if outcome, ok := s.runs[s.order[i]]; ok {
			cp := *outcome
			result = append(result, &cp)
		}
	}
	return result
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
