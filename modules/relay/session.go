package relay

// SessionRegistry maps a connection ID to its session. It is a plain map
// with no locking of its own: the Router serializes every access under
// its event mutex. Do not share a registry between routers.
type SessionRegistry struct {
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
	}
}

// Put creates or overwrites the session for connID.
func (r *SessionRegistry) Put(connID, username, room string) {
	r.sessions[connID] = &Session{
		ID:       connID,
		Username: username,
		Room:     room,
	}
}

// Get returns a copy of the session for connID. Callers treat a missing
// session as a no-op trigger, never an error.
func (r *SessionRegistry) Get(connID string) (Session, bool) {
	s, ok := r.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetRoom updates the room of an existing session. Missing sessions are
// ignored.
func (r *SessionRegistry) SetRoom(connID, room string) {
	if s, ok := r.sessions[connID]; ok {
		s.Room = room
	}
}

// Remove deletes the session for connID. Removing twice is not an error.
func (r *SessionRegistry) Remove(connID string) {
	delete(r.sessions, connID)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}
