package theme

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ocgamma/internal/client/storage"
)

// Store is the local source of truth for the theme. It persists the
// preference, keeps the root element in sync with the resolved mode and owns
// the single OS listener installed while the preference is System.
type Store struct {
	kv   storage.KV
	src  SchemeSource
	root Element
	log  *zap.Logger

	mu          sync.Mutex
	pref        Preference
	resolved    Resolved
	listener    *Listener
	subscribers map[int]func(Preference, Resolved)
	nextSubID   int
}

// NewStore creates a store with preference System. Call Initialize to load
// the persisted value.
func NewStore(kv storage.KV, src SchemeSource, root Element, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:          kv,
		src:         src,
		root:        root,
		log:         log,
		pref:        System,
		resolved:    ResolvedLight,
		subscribers: map[int]func(Preference, Resolved){},
	}
}

// Preference returns the current raw preference.
func (s *Store) Preference() Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pref
}

// Resolved returns the mode currently displayed.
func (s *Store) Resolved() Resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// SetTheme resolves and reflects pref, persists it, then installs or tears
// down the OS listener. The in-memory state is updated even when persisting
// fails; the error is returned so the caller can report it.
func (s *Store) SetTheme(ctx context.Context, pref Preference) error {
	if !pref.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPreference, pref)
	}

	s.mu.Lock()
	s.pref = pref
	s.applyLocked()
	var persistErr error
	if s.kv != nil {
		if err := s.kv.Set(ctx, storage.KeyThemePreference, []byte(pref)); err != nil {
			s.log.Warn("persist theme preference", zap.String("preference", string(pref)), zap.Error(err))
			persistErr = fmt.Errorf("persist theme preference: %w", err)
		}
	}
	s.removeListenerLocked()
	if pref == System {
		s.installListenerLocked()
	}
	notify := s.snapshotLocked()
	s.mu.Unlock()

	notify()
	return persistErr
}

// Initialize loads the persisted preference (System when absent or invalid),
// applies it and reinstalls the OS listener. Calling it again never leaves
// more than one listener installed.
func (s *Store) Initialize(ctx context.Context) error {
	pref := System
	if s.kv != nil {
		raw, err := s.kv.Get(ctx, storage.KeyThemePreference)
		switch {
		case err != nil:
			s.log.Warn("load theme preference, using system", zap.Error(err))
		case raw != nil:
			if p, err := ParsePreference(string(raw)); err == nil {
				pref = p
			} else {
				s.log.Warn("ignoring stored theme preference", zap.String("value", string(raw)))
			}
		}
	}

	s.mu.Lock()
	s.pref = pref
	s.removeListenerLocked()
	s.applyLocked()
	if pref == System {
		s.installListenerLocked()
	}
	notify := s.snapshotLocked()
	s.mu.Unlock()

	notify()
	return nil
}

// Cleanup removes the installed OS listener, if any.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeListenerLocked()
}

// Subscribe registers fn for every change of preference or resolved mode.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(Preference, Resolved)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) applyLocked() {
	s.resolved = Resolve(s.pref, s.src)
	Reflect(s.root, s.resolved)
}

func (s *Store) installListenerLocked() {
	if s.src == nil {
		return
	}
	var l *Listener
	l = NewListener(func(bool) { s.onSchemeChange(l) })
	s.listener = l
	s.src.AddListener(l)
}

func (s *Store) removeListenerLocked() {
	if s.listener == nil {
		return
	}
	if s.src != nil {
		s.src.RemoveListener(s.listener)
	}
	s.listener = nil
}

// onSchemeChange re-resolves without touching the stored preference.
func (s *Store) onSchemeChange(l *Listener) {
	s.mu.Lock()
	if s.listener != l || s.pref != System {
		s.mu.Unlock()
		return
	}
	s.applyLocked()
	resolved := s.resolved
	notify := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("os color scheme changed", zap.String("resolved", string(resolved)))
	notify()
}

func (s *Store) snapshotLocked() func() {
	pref, resolved := s.pref, s.resolved
	subs := make([]func(Preference, Resolved), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(pref, resolved)
		}
	}
}
