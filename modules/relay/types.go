package relay

import "time"

// DefaultRoom is the room a connection joins when the client does not
// name one.
const DefaultRoom = "general"

// Inbound event names accepted from clients.
const (
	EventJoin        = "join"
	EventSendMessage = "send-message"
	EventSendMedia   = "send-media"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventSwitchRoom  = "switch-room"
)

// Outbound event names delivered to clients.
const (
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventRoomUsers         = "room-users"
	EventNewMessage        = "new-message"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
)

// Session is the server-side state of one joined connection. A session
// exists from the first join event until transport disconnect; only the
// Room field changes in between.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// Notice is the payload of user-joined and user-left events.
type Notice struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingNotice is the payload of user-typing and user-stopped-typing
// events.
type TypingNotice struct {
	Username string `json:"username"`
}

// TextMessage is the new-message payload for plain text.
type TextMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

// MediaInfo describes an uploaded file referenced by a media message.
type MediaInfo struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// MediaMessage is the new-message payload for shared media. Caption is
// always present, defaulting to the empty string.
type MediaMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Type      string    `json:"type"`
	Media     MediaInfo `json:"media"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}
