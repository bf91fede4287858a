package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted when a connection joins a room.
type UserJoinedEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Room         string    `json:"room"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a connection leaves its room, either by
// switching rooms or by disconnecting.
type UserLeftEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	Room         string    `json:"room"`
	Timestamp    time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted when a text message is relayed to a room.
type MessageSentEvent struct {
	MessageID string    `json:"message_id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Length    int       `json:"length"`
	Timestamp time.Time `json:"timestamp"`
}

// MediaSharedEvent is emitted when a media message is relayed to a room.
type MediaSharedEvent struct {
	MessageID string    `json:"message_id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	MimeType  string    `json:"mimetype"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomSwitchedEvent is emitted when a connection moves between rooms.
type RoomSwitchedEvent struct {
	ConnectionID string    `json:"connection_id"`
	Username     string    `json:"username"`
	FromRoom     string    `json:"from_room"`
	ToRoom       string    `json:"to_room"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the relay domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"relay",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"relay",
		"UserLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"relay",
		"MessageSent",
		"v1",
	)

	MediaSharedV1 = helper.EventDefinition[MediaSharedEvent](
		"relay",
		"MediaShared",
		"v1",
	)

	RoomSwitchedV1 = helper.EventDefinition[RoomSwitchedEvent](
		"relay",
		"RoomSwitched",
		"v1",
	)
)
