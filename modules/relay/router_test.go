package relay

import (
	"sync"
	"testing"
)

// recordedDelivery is one captured Sender.Send call.
type recordedDelivery struct {
	connID  string
	event   string
	payload any
}

// fakeSender records deliveries for assertions.
type fakeSender struct {
	mu         sync.Mutex
	deliveries []recordedDelivery
}

func (s *fakeSender) Send(connID, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, recordedDelivery{connID, event, payload})
}

func (s *fakeSender) byEvent(event string) []recordedDelivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedDelivery
	for _, d := range s.deliveries {
		if d.event == event {
			out = append(out, d)
		}
	}
	return out
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = nil
}

func newTestRouter() (*Router, *fakeSender, *RoomIndex) {
	sender := &fakeSender{}
	rooms := NewRoomIndex()
	return NewRouter(NewSessionRegistry(), rooms, sender), sender, rooms
}

func TestRouter_JoinDefaultsRoom(t *testing.T) {
	router, sender, _ := newTestRouter()

	sess := router.HandleJoin("c1", "Alice", "")

	if sess.Room != DefaultRoom {
		t.Errorf("HandleJoin() room = %q, want %q", sess.Room, DefaultRoom)
	}

	snapshots := sender.byEvent(EventRoomUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 room-users delivery, got %d", len(snapshots))
	}
	if snapshots[0].connID != "c1" {
		t.Errorf("room-users delivered to %q, want c1", snapshots[0].connID)
	}

	users := snapshots[0].payload.([]Session)
	if len(users) != 1 || users[0].ID != "c1" || users[0].Username != "Alice" {
		t.Errorf("snapshot = %+v, want exactly [Alice/c1]", users)
	}
}

func TestRouter_JoinNotifiesOthersOnly(t *testing.T) {
	router, sender, _ := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	sender.reset()
	router.HandleJoin("c2", "Bob", "general")

	joined := sender.byEvent(EventUserJoined)
	if len(joined) != 1 {
		t.Fatalf("expected 1 user-joined delivery, got %d", len(joined))
	}
	if joined[0].connID != "c1" {
		t.Errorf("user-joined delivered to %q, want c1", joined[0].connID)
	}
	notice := joined[0].payload.(Notice)
	if notice.Username != "Bob" {
		t.Errorf("notice.Username = %q, want Bob", notice.Username)
	}
	if notice.Message != "Bob joined the room" {
		t.Errorf("notice.Message = %q", notice.Message)
	}
	if notice.Timestamp.IsZero() {
		t.Error("notice.Timestamp should not be zero")
	}

	snapshots := sender.byEvent(EventRoomUsers)
	if len(snapshots) != 1 || snapshots[0].connID != "c2" {
		t.Fatalf("expected exactly 1 room-users delivery to c2, got %+v", snapshots)
	}
	users := snapshots[0].payload.([]Session)
	if len(users) != 2 {
		t.Fatalf("snapshot has %d users, want 2", len(users))
	}
	names := map[string]bool{}
	for _, u := range users {
		names[u.Username] = true
	}
	if !names["Alice"] || !names["Bob"] {
		t.Errorf("snapshot usernames = %v, want Alice and Bob", names)
	}
}

func TestRouter_RejoinLeavesPreviousRoom(t *testing.T) {
	router, _, rooms := newTestRouter()

	router.HandleJoin("c1", "Alice", "red")
	router.HandleJoin("c1", "Alice2", "blue")

	if rooms.MemberCount("red") != 0 {
		t.Errorf("red still has %d members after rejoin", rooms.MemberCount("red"))
	}
	if rooms.MemberCount("blue") != 1 {
		t.Errorf("blue has %d members, want 1", rooms.MemberCount("blue"))
	}
}

func TestRouter_SendMessageFanOut(t *testing.T) {
	router, sender, _ := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	router.HandleJoin("c2", "Bob", "general")
	router.HandleJoin("c3", "Carol", "general")
	sender.reset()

	msg, ok := router.HandleMessage("c2", "hello")
	if !ok {
		t.Fatal("HandleMessage() dropped a message from a joined connection")
	}
	if msg.Type != "text" || msg.Username != "Bob" || msg.Room != "general" {
		t.Errorf("message = %+v", msg)
	}
	if msg.ID == "" {
		t.Error("message ID should not be empty")
	}

	deliveries := sender.byEvent(EventNewMessage)
	if len(deliveries) != 3 {
		t.Fatalf("expected 3 new-message deliveries, got %d", len(deliveries))
	}
	recipients := map[string]bool{}
	for _, d := range deliveries {
		recipients[d.connID] = true
		got := d.payload.(TextMessage)
		if got != msg {
			t.Errorf("delivery to %s = %+v, want identical message", d.connID, got)
		}
	}
	if !recipients["c2"] {
		t.Error("sender must receive its own message")
	}
}

func TestRouter_SendMessageUnjoinedDropped(t *testing.T) {
	router, sender, _ := newTestRouter()

	if _, ok := router.HandleMessage("ghost", "hello"); ok {
		t.Error("HandleMessage() accepted a message from an unjoined connection")
	}
	if len(sender.byEvent(EventNewMessage)) != 0 {
		t.Error("no deliveries expected for an unjoined sender")
	}
}

func TestRouter_SendMediaFanOut(t *testing.T) {
	router, sender, _ := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	router.HandleJoin("c2", "Bob", "general")
	sender.reset()

	media := MediaInfo{
		URL:          "/uploads/media-1-abc.png",
		Filename:     "media-1-abc.png",
		OriginalName: "cat.png",
		MimeType:     "image/png",
		Size:         1234,
	}
	msg, ok := router.HandleMedia("c1", media, "")
	if !ok {
		t.Fatal("HandleMedia() dropped media from a joined connection")
	}
	if msg.Type != "media" || msg.Media != media {
		t.Errorf("message = %+v", msg)
	}
	if msg.Caption != "" {
		t.Errorf("caption = %q, want empty default", msg.Caption)
	}

	deliveries := sender.byEvent(EventNewMessage)
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 new-message deliveries, got %d", len(deliveries))
	}
}

func TestRouter_TypingExcludesSender(t *testing.T) {
	router, sender, _ := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	router.HandleJoin("c2", "Bob", "general")
	router.HandleJoin("c3", "Carol", "general")
	sender.reset()

	if !router.HandleTyping("c1") {
		t.Fatal("HandleTyping() returned false for a joined connection")
	}

	deliveries := sender.byEvent(EventUserTyping)
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 user-typing deliveries, got %d", len(deliveries))
	}
	for _, d := range deliveries {
		if d.connID == "c1" {
			t.Error("typing notice delivered to the sender")
		}
		if notice := d.payload.(TypingNotice); notice.Username != "Alice" {
			t.Errorf("notice.Username = %q, want Alice", notice.Username)
		}
	}

	sender.reset()
	router.HandleStopTyping("c1")
	if got := len(sender.byEvent(EventUserStoppedTyping)); got != 2 {
		t.Errorf("expected 2 user-stopped-typing deliveries, got %d", got)
	}
}

func TestRouter_TypingUnjoinedNoOp(t *testing.T) {
	router, sender, _ := newTestRouter()

	if router.HandleTyping("ghost") {
		t.Error("HandleTyping() returned true for an unjoined connection")
	}
	if len(sender.deliveries) != 0 {
		t.Error("no deliveries expected")
	}
}

func TestRouter_SwitchRoom(t *testing.T) {
	router, sender, rooms := newTestRouter()

	router.HandleJoin("c1", "Alice", "red")
	router.HandleJoin("c2", "Bob", "red")
	router.HandleJoin("c3", "Carol", "blue")
	sender.reset()

	sess, oldRoom, ok := router.HandleSwitchRoom("c1", "blue")
	if !ok {
		t.Fatal("HandleSwitchRoom() failed for a joined connection")
	}
	if sess.Room != "blue" {
		t.Errorf("session room = %q, want blue", sess.Room)
	}
	if oldRoom != "red" {
		t.Errorf("old room = %q, want red", oldRoom)
	}

	if rooms.MemberCount("red") != 1 {
		t.Errorf("red has %d members, want 1", rooms.MemberCount("red"))
	}
	if rooms.MemberCount("blue") != 2 {
		t.Errorf("blue has %d members, want 2", rooms.MemberCount("blue"))
	}

	left := sender.byEvent(EventUserLeft)
	if len(left) != 1 || left[0].connID != "c2" {
		t.Fatalf("expected user-left delivered to c2 only, got %+v", left)
	}
	joined := sender.byEvent(EventUserJoined)
	if len(joined) != 1 || joined[0].connID != "c3" {
		t.Fatalf("expected user-joined delivered to c3 only, got %+v", joined)
	}
	snapshots := sender.byEvent(EventRoomUsers)
	if len(snapshots) != 1 || snapshots[0].connID != "c1" {
		t.Fatalf("expected room-users delivered to c1 only, got %+v", snapshots)
	}
	users := snapshots[0].payload.([]Session)
	if len(users) != 2 {
		t.Errorf("snapshot has %d users, want 2", len(users))
	}
}

func TestRouter_SwitchRoomCreatesRoom(t *testing.T) {
	router, sender, rooms := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	sender.reset()

	if _, _, ok := router.HandleSwitchRoom("c1", "brand-new"); !ok {
		t.Fatal("HandleSwitchRoom() failed")
	}
	if rooms.MemberCount("brand-new") != 1 {
		t.Error("new room was not created on switch")
	}
	// The previous room is empty and pruned.
	if rooms.Len() != 1 {
		t.Errorf("room count = %d, want 1", rooms.Len())
	}
}

func TestRouter_SwitchRoomUnjoinedDropped(t *testing.T) {
	router, sender, _ := newTestRouter()

	if _, _, ok := router.HandleSwitchRoom("ghost", "blue"); ok {
		t.Error("HandleSwitchRoom() accepted an unjoined connection")
	}
	if len(sender.deliveries) != 0 {
		t.Error("no deliveries expected")
	}
}

func TestRouter_SwitchRoomReportsPreviousRoom(t *testing.T) {
	router, _, _ := newTestRouter()
	router.HandleJoin("c1", "Alice", "red")

	// The previous room comes out of the same atomic step as the
	// switch itself, so consecutive switches always chain correctly.
	if _, old, ok := router.HandleSwitchRoom("c1", "blue"); !ok || old != "red" {
		t.Errorf("old room = %q (ok=%v), want red", old, ok)
	}
	if _, old, ok := router.HandleSwitchRoom("c1", "green"); !ok || old != "blue" {
		t.Errorf("old room = %q (ok=%v), want blue", old, ok)
	}
	if _, old, ok := router.HandleSwitchRoom("c1", "green"); !ok || old != "green" {
		t.Errorf("same-room switch old room = %q (ok=%v), want green", old, ok)
	}
	if _, old, ok := router.HandleSwitchRoom("c1", ""); !ok || old != "green" {
		t.Errorf("old room = %q (ok=%v), want green", old, ok)
	}
}

func TestRouter_Disconnect(t *testing.T) {
	router, sender, rooms := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	router.HandleJoin("c2", "Bob", "general")
	router.HandleJoin("c3", "Carol", "general")
	sender.reset()

	sess, ok := router.HandleDisconnect("c1")
	if !ok {
		t.Fatal("HandleDisconnect() found no session")
	}
	if sess.Username != "Alice" {
		t.Errorf("disconnected session = %+v", sess)
	}

	left := sender.byEvent(EventUserLeft)
	if len(left) != 2 {
		t.Fatalf("expected 2 user-left deliveries, got %d", len(left))
	}
	for _, d := range left {
		if d.connID == "c1" {
			t.Error("user-left delivered to the disconnecting connection")
		}
		if notice := d.payload.(Notice); notice.Username != "Alice" {
			t.Errorf("notice.Username = %q, want Alice", notice.Username)
		}
	}

	if rooms.MemberCount("general") != 2 {
		t.Errorf("general has %d members, want 2", rooms.MemberCount("general"))
	}
	sessions, _ := router.Stats()
	if sessions != 2 {
		t.Errorf("session count = %d, want 2", sessions)
	}
}

func TestRouter_DisconnectIdempotent(t *testing.T) {
	router, sender, _ := newTestRouter()

	router.HandleJoin("c1", "Alice", "general")
	router.HandleJoin("c2", "Bob", "general")
	sender.reset()

	if _, ok := router.HandleDisconnect("c1"); !ok {
		t.Fatal("first disconnect should resolve the session")
	}
	if _, ok := router.HandleDisconnect("c1"); ok {
		t.Error("second disconnect should be a no-op")
	}

	if got := len(sender.byEvent(EventUserLeft)); got != 1 {
		t.Errorf("expected exactly 1 user-left broadcast, got %d", got)
	}
}

func TestRouter_SnapshotDropsStaleMembers(t *testing.T) {
	router, sender, rooms := newTestRouter()

	// Simulate a disconnect race: a member ID with no resolvable session.
	rooms.Add("general", "ghost")

	router.HandleJoin("c1", "Alice", "general")

	snapshots := sender.byEvent(EventRoomUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 room-users delivery, got %d", len(snapshots))
	}
	users := snapshots[0].payload.([]Session)
	if len(users) != 1 || users[0].ID != "c1" {
		t.Errorf("snapshot = %+v, want only the resolvable session", users)
	}
}

// membershipRooms returns every room that holds connID.
func membershipRooms(idx *RoomIndex, connID string) []string {
	var out []string
	for room, members := range idx.rooms {
		if members[connID] {
			out = append(out, room)
		}
	}
	return out
}

func TestRouter_AtMostOneRoomInvariant(t *testing.T) {
	router, _, rooms := newTestRouter()

	steps := []func(){
		func() { router.HandleJoin("c1", "Alice", "red") },
		func() { router.HandleJoin("c2", "Bob", "red") },
		func() { router.HandleSwitchRoom("c1", "blue") },
		func() { router.HandleJoin("c1", "Alice", "red") },
		func() { router.HandleSwitchRoom("c2", "blue") },
		func() { router.HandleDisconnect("c1") },
		func() { router.HandleSwitchRoom("c2", "red") },
		func() { router.HandleDisconnect("c2") },
		func() { router.HandleDisconnect("c2") },
	}

	for i, step := range steps {
		step()
		for _, conn := range []string{"c1", "c2"} {
			if got := membershipRooms(rooms, conn); len(got) > 1 {
				t.Fatalf("after step %d, %s is in %d rooms: %v", i, conn, len(got), got)
			}
		}
	}

	// Everything disconnected: no sessions, no rooms left behind.
	sessions, roomCount := router.Stats()
	if sessions != 0 || roomCount != 0 {
		t.Errorf("after teardown: %d sessions, %d rooms, want 0/0", sessions, roomCount)
	}
}

func TestRouter_ConcurrentEvents(t *testing.T) {
	router, _, _ := newTestRouter()

	var wg sync.WaitGroup
	conns := []string{"c1", "c2", "c3", "c4"}
	for _, conn := range conns {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			router.HandleJoin(id, "user-"+id, "general")
			for i := 0; i < 50; i++ {
				router.HandleMessage(id, "hi")
				router.HandleTyping(id)
				router.HandleSwitchRoom(id, "side")
				router.HandleSwitchRoom(id, "general")
			}
			router.HandleDisconnect(id)
		}(conn)
	}
	wg.Wait()

	sessions, roomCount := router.Stats()
	if sessions != 0 || roomCount != 0 {
		t.Errorf("after concurrent teardown: %d sessions, %d rooms, want 0/0", sessions, roomCount)
	}
}
