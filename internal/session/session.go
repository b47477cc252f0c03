package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCapacity is returned when a workflow exceeds its per-workflow value ceiling.
var ErrCapacity = errors.New("session tier capacity exceeded")

// Store is the fast/session tier: a process-local key-value map scoped by
// workflow identifier. Values are stored as marshaled JSON so reads hand out
// copies, never aliases into shared state. The per-workflow entry ceiling
// mirrors the small capacity of a cookie-backed session.
type Store struct {
	mu         sync.RWMutex
	workflows  map[string]*workflowEntry
	maxEntries int
	clock      func() time.Time
}

type workflowEntry struct {
	values   map[string]json.RawMessage
	lastSeen time.Time
}

// NewStore builds a session store with the given per-workflow value ceiling.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &Store{
		workflows:  make(map[string]*workflowEntry),
		maxEntries: maxEntries,
		clock:      time.Now,
	}
}

// Set stores value under (workflowID, key), creating the workflow scope if needed.
func (s *Store) Set(workflowID, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.workflows[workflowID]
	if !ok {
		entry = &workflowEntry{values: make(map[string]json.RawMessage)}
		s.workflows[workflowID] = entry
	}
	if _, exists := entry.values[key]; !exists && len(entry.values) >= s.maxEntries {
		return ErrCapacity
	}
	entry.values[key] = payload
	entry.lastSeen = s.clock()
	return nil
}

// Get unmarshals the value stored under (workflowID, key) into dest and
// reports whether it was present. Reading refreshes the workflow's idle timer.
func (s *Store) Get(workflowID, key string, dest any) bool {
	s.mu.Lock()
	entry, ok := s.workflows[workflowID]
	if ok {
		entry.lastSeen = s.clock()
	}
	var payload json.RawMessage
	if ok {
		payload = entry.values[key]
	}
	s.mu.Unlock()

	if payload == nil {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

// Has reports whether the workflow scope exists at all.
func (s *Store) Has(workflowID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.workflows[workflowID]
	return ok
}

// Delete removes a single value from a workflow scope.
func (s *Store) Delete(workflowID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.workflows[workflowID]; ok {
		delete(entry.values, key)
	}
}

// DeleteWorkflow removes the entire workflow scope.
func (s *Store) DeleteWorkflow(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, workflowID)
}

// WorkflowIDs returns the identifiers of all live workflow scopes.
func (s *Store) WorkflowIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.workflows))
	for id := range s.workflows {
		ids = append(ids, id)
	}
	return ids
}

// Sweep evicts workflow scopes idle longer than maxIdle and returns how many
// were removed.
func (s *Store) Sweep(maxIdle time.Duration) int {
	cutoff := s.clock().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.workflows {
		if entry.lastSeen.Before(cutoff) {
			delete(s.workflows, id)
			removed++
		}
	}
	return removed
}
