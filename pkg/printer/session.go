package printer

import (
	"sort"
	"sync"

	"hdexport/pkg/invoice"
)

// Entry is what a print view renders: the invoice identity and its detail
type Entry struct {
	Invoice invoice.Identifier `json:"invoice"`
	Data    *invoice.Detail    `json:"data"`
}

// SessionStore holds print entries for the lifetime of one process
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[string]Entry)}
}

// Put stores e under key, replacing any previous entry
func (s *SessionStore) Put(key string, e Entry) {
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
}

// Get returns the entry for key
func (s *SessionStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Delete removes key
func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Keys returns the stored keys in sorted order
func (s *SessionStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
