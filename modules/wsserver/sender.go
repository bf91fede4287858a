package wsserver

import (
	"encoding/json"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// sendBufferSize is the per-connection outbound queue depth.
const sendBufferSize = 256

// connTable tracks live connections and implements relay.Sender.
// Deliveries are non-blocking: a connection whose queue is full simply
// drops the frame, so a slow consumer never stalls fan-out to others.
type connTable struct {
	conns  sync.Map // connID -> *client
	logger types.Logger
}

func newConnTable(logger types.Logger) *connTable {
	return &connTable{logger: logger}
}

func (t *connTable) add(c *client) {
	t.conns.Store(c.id, c)
}

func (t *connTable) remove(connID string) {
	t.conns.Delete(connID)
}

// Send queues one event frame for one connection. Unknown connections
// (already disconnected) are ignored.
func (t *connTable) Send(connID, event string, payload any) {
	v, ok := t.conns.Load(connID)
	if !ok {
		return
	}
	c := v.(*client)

	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("Failed to marshal event payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(WebSocketMessage{Type: event, Payload: data})
	if err != nil {
		t.logger.Error("Failed to marshal event frame", "event", event, "error", err)
		return
	}

	select {
	case c.send <- frame:
	default:
		t.logger.Warn("Dropped frame for slow connection", "connID", connID, "event", event)
	}
}

// closeAll shuts down every tracked connection.
func (t *connTable) closeAll() {
	t.conns.Range(func(_, v any) bool {
		c := v.(*client)
		c.shutdown()
		_ = c.conn.Close()
		return true
	})
}

// count returns the number of tracked connections.
func (t *connTable) count() int {
	n := 0
	t.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
