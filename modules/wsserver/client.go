package wsserver

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/chat-relay/modules/relay"
)

// WebSocketMessage is the envelope for every frame on the event channel.
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// joinPayload is the payload of a join event.
type joinPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// messagePayload is the payload of a send-message event.
type messagePayload struct {
	Text string `json:"text"`
}

// mediaPayload is the payload of a send-media event.
type mediaPayload struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	Caption      string `json:"caption"`
}

// switchRoomPayload is the payload of a switch-room event.
type switchRoomPayload struct {
	Room string `json:"room"`
}

// client is one live websocket connection. Outbound frames go through a
// buffered channel drained by a dedicated writer goroutine, so writes
// to one connection never block event handling for another.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// shutdown stops the writer goroutine. Safe to call more than once.
func (c *client) shutdown() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket supervises one connection for its lifetime: it wires
// inbound events to the relay and, when the transport closes for any
// reason, runs the disconnect path exactly once.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.NewString()
	cl := &client{
		id:   connID,
		conn: c,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	h.table.add(cl)
	go cl.writePump()

	h.logger.Info("WebSocket connected", "connID", connID)

	defer func() {
		h.table.remove(connID)
		h.relay.Disconnect(connID)
		cl.shutdown()
		_ = c.Close()
		h.logger.Info("WebSocket disconnected", "connID", connID)
	}()

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", "connID", connID, "error", err)
			}
			return
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			h.logger.Debug("Skipping malformed frame", "connID", connID, "error", err)
			continue
		}
		h.dispatch(connID, msg)
	}
}

// dispatch routes one inbound event to the matching relay handler.
// Undecodable payloads and unknown event names are skipped; per the
// protocol, client errors never terminate the connection.
func (h *Handlers) dispatch(connID string, msg WebSocketMessage) {
	switch msg.Type {
	case relay.EventJoin:
		var p joinPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.Debug("Invalid join payload", "connID", connID, "error", err)
			return
		}
		h.relay.Join(connID, p.Username, p.Room)

	case relay.EventSendMessage:
		var p messagePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.Debug("Invalid message payload", "connID", connID, "error", err)
			return
		}
		h.relay.SendMessage(connID, p.Text)

	case relay.EventSendMedia:
		var p mediaPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.Debug("Invalid media payload", "connID", connID, "error", err)
			return
		}
		h.relay.SendMedia(connID, relay.MediaInfo{
			URL:          p.URL,
			Filename:     p.Filename,
			OriginalName: p.OriginalName,
			MimeType:     p.MimeType,
			Size:         p.Size,
		}, p.Caption)

	case relay.EventTyping:
		h.relay.Typing(connID)

	case relay.EventStopTyping:
		h.relay.StopTyping(connID)

	case relay.EventSwitchRoom:
		var p switchRoomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.logger.Debug("Invalid switch-room payload", "connID", connID, "error", err)
			return
		}
		h.relay.SwitchRoom(connID, p.Room)

	default:
		h.logger.Debug("Unknown event type", "connID", connID, "type", msg.Type)
	}
}
