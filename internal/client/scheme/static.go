// Package scheme provides OS color scheme sources for the theme store.
package scheme

import (
	"sync"

	"ocgamma/internal/client/theme"
)

// listeners is a pointer-identity listener set shared by the sources.
type listeners struct {
	mu   sync.Mutex
	list []*theme.Listener
}

func (ls *listeners) add(l *theme.Listener) {
	if l == nil {
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for _, existing := range ls.list {
		if existing == l {
			return
		}
	}
	ls.list = append(ls.list, l)
}

func (ls *listeners) remove(l *theme.Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, existing := range ls.list {
		if existing == l {
			ls.list = append(ls.list[:i], ls.list[i+1:]...)
			return
		}
	}
}

func (ls *listeners) len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.list)
}

// notify calls every listener outside the lock, so listeners may add or remove themselves.
func (ls *listeners) notify(dark bool) {
	ls.mu.Lock()
	snapshot := append([]*theme.Listener(nil), ls.list...)
	ls.mu.Unlock()
	for _, l := range snapshot {
		l.Notify(dark)
	}
}

// Static is a source whose preference is set programmatically.
type Static struct {
	mu   sync.Mutex
	dark bool
	ls   listeners
}

var _ theme.SchemeSource = (*Static)(nil)

// NewStatic returns a source reporting dark.
func NewStatic(dark bool) *Static {
	return &Static{dark: dark}
}

func (s *Static) PrefersDark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}

// Set changes the preference and notifies listeners when it differs.
func (s *Static) Set(dark bool) {
	s.mu.Lock()
	changed := s.dark != dark
	s.dark = dark
	s.mu.Unlock()

	if changed {
		s.ls.notify(dark)
	}
}

func (s *Static) AddListener(l *theme.Listener)    { s.ls.add(l) }
func (s *Static) RemoveListener(l *theme.Listener) { s.ls.remove(l) }

// ListenerCount returns the number of installed listeners.
func (s *Static) ListenerCount() int { return s.ls.len() }
