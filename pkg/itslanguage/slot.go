package itslanguage

import "sync"

// SessionSlot holds the recording session in progress on a connection.
//
// At most one session occupies the slot. A session reserves the slot before
// it has a recording id, so the slot can be busy with an empty id.
type SessionSlot struct {
	mu   sync.Mutex
	busy bool
	id   string
}

// RecordingID returns the id of the recording in progress, if any.
func (s *SessionSlot) RecordingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Busy reports whether a session occupies the slot.
func (s *SessionSlot) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Set marks the slot busy with recording id.
func (s *SessionSlot) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = true
	s.id = id
}

// Clear empties the slot.
func (s *SessionSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.id = ""
}

// acquire reserves the slot if it is empty. Otherwise it returns the id of
// the occupying session.
func (s *SessionSlot) acquire() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return s.id, false
	}
	s.busy = true
	return "", true
}
