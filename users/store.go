package users

import "sync"

// Store holds the current user snapshot for the running process. It is
// hydrated from a server-provided snapshot and owned by a single writer;
// consumers receive it by injection rather than reaching for a global.
type Store interface {
	Current() *User
	Set(user *User)
	Clear()
}

// InMemoryStore is the default Store implementation.
type InMemoryStore struct {
	mu   sync.RWMutex
	user *User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Current returns a copy of the stored snapshot, or nil when anonymous.
func (s *InMemoryStore) Current() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	snapshot := *s.user
	return &snapshot
}

func (s *InMemoryStore) Set(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	snapshot := *user
	s.user = &snapshot
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}
