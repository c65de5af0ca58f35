package state

import "sync"

// Store maps chat ids to sessions. Sessions are created on first access and
// live for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	initial  State
}

// NewStore returns an empty store whose new sessions start in initial.
func NewStore(initial State) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		initial:  initial,
	}
}

// Get returns the session of the chat, creating it when missing.
func (s *Store) Get(chatID int64) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}
	sess = newSession(chatID, s.initial)
	s.sessions[chatID] = sess
	return sess
}

// Peek returns the session without creating it.
func (s *Store) Peek(chatID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	return sess, ok
}

// Len reports the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
