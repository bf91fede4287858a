package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sender delivers one event to one connection. Delivery is best-effort
// and must not block: a slow recipient may lag or drop at the transport
// layer, it never stalls handling of other connections' events.
type Sender interface {
	Send(connID, event string, payload any)
}

type delivery struct {
	connID  string
	event   string
	payload any
}

// Router is the event-routing core. Every inbound event is handled as a
// single atomic step: the mutex is held across the precondition read,
// the registry/index mutation and the fan-out computation, so no two
// events touching overlapping state interleave. Actual delivery happens
// after unlock with the membership captured inside the step.
type Router struct {
	mu       sync.Mutex
	sessions *SessionRegistry
	rooms    *RoomIndex
	sender   Sender
}

// NewRouter creates a router over the given registry and index. The
// router takes exclusive ownership of both.
func NewRouter(sessions *SessionRegistry, rooms *RoomIndex, sender Sender) *Router {
	return &Router{
		sessions: sessions,
		rooms:    rooms,
		sender:   sender,
	}
}

// HandleJoin creates (or overwrites) the session for connID and adds it
// to the requested room, defaulting to DefaultRoom. The other room
// members are notified; the joining connection alone receives the
// member snapshot.
func (r *Router) HandleJoin(connID, username, room string) Session {
	if room == "" {
		room = DefaultRoom
	}

	r.mu.Lock()
	// A rejoin is treated as a fresh join: silently leave the previous
	// room so a connection is never in two member sets.
	if prev, ok := r.sessions.Get(connID); ok {
		r.rooms.Remove(prev.Room, connID)
	}
	r.sessions.Put(connID, username, room)
	r.rooms.Add(room, connID)

	now := time.Now()
	var out []delivery
	for _, id := range r.rooms.Members(room) {
		if id == connID {
			continue
		}
		out = append(out, delivery{id, EventUserJoined, Notice{
			Username:  username,
			Message:   username + " joined the room",
			Timestamp: now,
		}})
	}
	out = append(out, delivery{connID, EventRoomUsers, r.snapshotLocked(room)})
	r.mu.Unlock()

	r.deliver(out)
	return Session{ID: connID, Username: username, Room: room}
}

// HandleMessage relays a text message to every member of the sender's
// room, sender included. Events from unjoined connections are dropped.
func (r *Router) HandleMessage(connID, text string) (TextMessage, bool) {
	r.mu.Lock()
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.mu.Unlock()
		return TextMessage{}, false
	}

	msg := TextMessage{
		ID:        uuid.NewString(),
		Username:  sess.Username,
		Text:      text,
		Type:      "text",
		Timestamp: time.Now(),
		Room:      sess.Room,
	}
	var out []delivery
	for _, id := range r.rooms.Members(sess.Room) {
		out = append(out, delivery{id, EventNewMessage, msg})
	}
	r.mu.Unlock()

	r.deliver(out)
	return msg, true
}

// HandleMedia relays a media message to every member of the sender's
// room, sender included.
func (r *Router) HandleMedia(connID string, media MediaInfo, caption string) (MediaMessage, bool) {
	r.mu.Lock()
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.mu.Unlock()
		return MediaMessage{}, false
	}

	msg := MediaMessage{
		ID:        uuid.NewString(),
		Username:  sess.Username,
		Type:      "media",
		Media:     media,
		Caption:   caption,
		Timestamp: time.Now(),
		Room:      sess.Room,
	}
	var out []delivery
	for _, id := range r.rooms.Members(sess.Room) {
		out = append(out, delivery{id, EventNewMessage, msg})
	}
	r.mu.Unlock()

	r.deliver(out)
	return msg, true
}

// HandleTyping notifies the other members of the sender's room that the
// sender started typing.
func (r *Router) HandleTyping(connID string) bool {
	return r.notifyOthers(connID, EventUserTyping)
}

// HandleStopTyping notifies the other members of the sender's room that
// the sender stopped typing.
func (r *Router) HandleStopTyping(connID string) bool {
	return r.notifyOthers(connID, EventUserStoppedTyping)
}

func (r *Router) notifyOthers(connID, event string) bool {
	r.mu.Lock()
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.mu.Unlock()
		return false
	}

	var out []delivery
	for _, id := range r.rooms.Members(sess.Room) {
		if id == connID {
			continue
		}
		out = append(out, delivery{id, event, TypingNotice{Username: sess.Username}})
	}
	r.mu.Unlock()

	r.deliver(out)
	return true
}

// HandleSwitchRoom moves connID from its current room to newRoom
// (defaulting to DefaultRoom), notifying the old room's remaining
// members and the new room's other members, and sending the switching
// connection a snapshot of the new room. The returned string is the
// room the connection left, captured inside the same atomic step.
func (r *Router) HandleSwitchRoom(connID, newRoom string) (Session, string, bool) {
	if newRoom == "" {
		newRoom = DefaultRoom
	}

	r.mu.Lock()
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.mu.Unlock()
		return Session{}, "", false
	}
	oldRoom := sess.Room

	now := time.Now()
	var out []delivery

	r.rooms.Remove(oldRoom, connID)
	for _, id := range r.rooms.Members(oldRoom) {
		out = append(out, delivery{id, EventUserLeft, Notice{
			Username:  sess.Username,
			Message:   sess.Username + " left the room",
			Timestamp: now,
		}})
	}

	r.sessions.SetRoom(connID, newRoom)
	r.rooms.Add(newRoom, connID)
	for _, id := range r.rooms.Members(newRoom) {
		if id == connID {
			continue
		}
		out = append(out, delivery{id, EventUserJoined, Notice{
			Username:  sess.Username,
			Message:   sess.Username + " joined the room",
			Timestamp: now,
		}})
	}
	out = append(out, delivery{connID, EventRoomUsers, r.snapshotLocked(newRoom)})
	r.mu.Unlock()

	r.deliver(out)
	return Session{ID: connID, Username: sess.Username, Room: newRoom}, oldRoom, true
}

// HandleDisconnect removes connID's session and room membership,
// notifying the room's remaining members. It is idempotent: duplicate
// transport close signals find no session and do nothing.
func (r *Router) HandleDisconnect(connID string) (Session, bool) {
	r.mu.Lock()
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.mu.Unlock()
		return Session{}, false
	}

	// Recipients are resolved before the session is removed so the
	// username is still available.
	now := time.Now()
	var out []delivery
	for _, id := range r.rooms.Members(sess.Room) {
		if id == connID {
			continue
		}
		out = append(out, delivery{id, EventUserLeft, Notice{
			Username:  sess.Username,
			Message:   sess.Username + " left the room",
			Timestamp: now,
		}})
	}
	r.rooms.Remove(sess.Room, connID)
	r.sessions.Remove(connID)
	r.mu.Unlock()

	r.deliver(out)
	return sess, true
}

// Stats returns the current session and room counts.
func (r *Router) Stats() (sessions, rooms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len(), r.rooms.Len()
}

// snapshotLocked resolves a room's member IDs to session objects,
// silently dropping any ID without a resolvable session (a stale
// disconnect race is expected and harmless). Callers must hold r.mu.
func (r *Router) snapshotLocked(room string) []Session {
	members := r.rooms.Members(room)
	out := make([]Session, 0, len(members))
	for _, id := range members {
		if sess, ok := r.sessions.Get(id); ok {
			out = append(out, sess)
		}
	}
	return out
}

func (r *Router) deliver(out []delivery) {
	for _, d := range out {
		r.sender.Send(d.connID, d.event, d.payload)
	}
}
