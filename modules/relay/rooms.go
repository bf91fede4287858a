package relay

// RoomIndex maps a room name to the set of connection IDs currently in
// it. Rooms are created lazily on first add and pruned when their last
// member leaves. Like SessionRegistry, it carries no locking of its own;
// the Router serializes access.
type RoomIndex struct {
	rooms map[string]map[string]bool
}

// NewRoomIndex creates an empty index.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms: make(map[string]map[string]bool),
	}
}

// Ensure returns the live member set for room, creating an empty one if
// absent.
func (idx *RoomIndex) Ensure(room string) map[string]bool {
	members, ok := idx.rooms[room]
	if !ok {
		members = make(map[string]bool)
		idx.rooms[room] = members
	}
	return members
}

// Add puts connID into room's member set. Adding twice is a no-op.
func (idx *RoomIndex) Add(room, connID string) {
	idx.Ensure(room)[connID] = true
}

// Remove takes connID out of room's member set, deleting the room entry
// once it is empty. Unknown rooms and members are ignored.
func (idx *RoomIndex) Remove(room, connID string) {
	members, ok := idx.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(idx.rooms, room)
	}
}

// Members returns a snapshot of room's member set. The returned slice
// does not observe later mutations.
func (idx *RoomIndex) Members(room string) []string {
	members := idx.rooms[room]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// MemberCount returns the number of members in room, zero if unknown.
func (idx *RoomIndex) MemberCount(room string) int {
	return len(idx.rooms[room])
}

// Len returns the number of non-empty rooms.
func (idx *RoomIndex) Len() int {
	return len(idx.rooms)
}
