package service

import "sync"

// SessionRegistry maps session identifiers to live sessions for the duration
// of their connections. Sessions are inserted on init and removed when the
// connection closes or the interview is reaped; lookups from outside the
// owning connection are read-only administrative inspection.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*InterviewSession
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*InterviewSession)}
}

// Put registers a session under its identifier.
func (r *SessionRegistry) Put(session *InterviewSession) {
	if session == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

// Get looks up a session by identifier.
func (r *SessionRegistry) Get(id string) (*InterviewSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Remove deletes a session from the registry.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
