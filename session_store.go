package authsync

import "sync"

// SessionStore is the single in-memory source of truth for the current
// session. Mutations are synchronous and immediately visible to the next
// read; observers are notified after each mutation.
type SessionStore struct {
	mu      sync.RWMutex
	session *Session
	subs    map[int]func(*Session)
	nextSub int
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{subs: map[int]func(*Session){}}
}

// Current returns the active session, or nil when unauthenticated.
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Set replaces the active session and notifies observers.
func (s *SessionStore) Set(session *Session) {
	s.mu.Lock()
	s.session = session.Clone()
	observers := s.observers()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(session.Clone())
	}
}

// Clear drops the active session and notifies observers.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.session = nil
	observers := s.observers()
	s.mu.Unlock()

	for _, fn := range observers {
		fn(nil)
	}
}

// Subscribe registers an observer invoked with the new session (nil on
// clear) after every mutation. The returned func removes the subscription.
func (s *SessionStore) Subscribe(fn func(*Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// observers snapshots the subscriber list; callers hold the lock.
func (s *SessionStore) observers() []func(*Session) {
	out := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
