// Package favorites holds the set of asset ids the user has starred. The set
// is owned by one Store instance injected where needed; nothing else mutates
// it.
package favorites

import (
	"sort"
	"sync"
)

// Store is a mutex-guarded set of asset identifiers.
type Store struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewStore creates an empty favorites store.
func NewStore() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Add marks id as favorite. Returns false if it already was.
func (s *Store) Add(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove unmarks id. Returns false if it was not a favorite.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Contains reports whether id is a favorite.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Snapshot returns the current favorite ids, sorted for stable output.
func (s *Store) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
