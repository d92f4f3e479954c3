package session

import "fmt"

// Store holds the last session fetched from the server. Every update replaces
// the projection wholesale; nothing is merged.
type Store struct {
	current Session
	loaded  bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs next as the current session. The store is last-write-wins,
// so a regression (phase going backwards, status un-completing) is still
// applied; the returned error describes it so the caller can report it.
func (s *Store) Replace(next Session) error {
	prev, had := s.current, s.loaded
	next.Messages = append([]Message(nil), next.Messages...)
	s.current = next
	s.loaded = true
	if !had {
		return nil
	}
	return checkProgression(prev, next)
}

// Current returns a copy of the held session.
func (s *Store) Current() (Session, bool) {
	if !s.loaded {
		return Session{}, false
	}
	out := s.current
	out.Messages = append([]Message(nil), s.current.Messages...)
	return out, true
}

// Loaded reports whether any session has been fetched yet.
func (s *Store) Loaded() bool { return s.loaded }

// Phase returns the current phase, or 0 before the first fetch.
func (s *Store) Phase() int {
	if !s.loaded {
		return 0
	}
	return s.current.CurrentPhase
}

// Status returns the current status, or "" before the first fetch.
func (s *Store) Status() Status {
	if !s.loaded {
		return ""
	}
	return s.current.Status
}

// checkProgression enforces that phase never decreases and status only moves
// forward.
func checkProgression(prev, next Session) error {
	if next.CurrentPhase < prev.CurrentPhase {
		return fmt.Errorf("%w: phase %d -> %d", ErrRegression, prev.CurrentPhase, next.CurrentPhase)
	}
	if next.Status.rank() < prev.Status.rank() {
		return fmt.Errorf("%w: status %s -> %s", ErrRegression, prev.Status, next.Status)
	}
	return nil
}
