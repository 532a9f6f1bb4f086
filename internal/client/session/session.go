// Package session holds who the client is logged in as and gates routes on it.
package session

import (
	"sync"

	"ocgamma/internal/client/api"
)

// State is a snapshot of the session. IsAuthenticated is true exactly when
// User is set. IsLoading is true only until the first resolution.
type State struct {
	User            *api.User
	IsAuthenticated bool
	IsLoading       bool
}

// Store is the process-wide session container.
type Store struct {
	mu          sync.RWMutex
	user        *api.User
	loading     bool
	subscribers map[int]func(State)
	nextID      int
}

// NewStore returns a store in the initial loading state.
func NewStore() *Store {
	return &Store{loading: true, subscribers: map[int]func(State){}}
}

// Snapshot returns the current state. The user is a copy.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// SetUser replaces the cached user wholesale and ends loading.
// A nil user means signed out.
func (s *Store) SetUser(u *api.User) {
	s.mu.Lock()
	s.user = u.Clone()
	s.loading = false
	st := s.stateLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Clear signs out locally.
func (s *Store) Clear() {
	s.SetUser(nil)
}

// Subscribe calls fn after every change. The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) stateLocked() State {
	return State{
		User:            s.user.Clone(),
		IsAuthenticated: s.user != nil,
		IsLoading:       s.loading,
	}
}

func (s *Store) subscribersLocked() []func(State) {
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
