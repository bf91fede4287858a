package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/chat-relay/events"
)

// Module wraps the Router as a mono module and publishes relay events on
// the EventBus after each state transition. The bus carries in-process
// telemetry only; client-visible fan-out is computed and delivered by
// the Router itself.
type Module struct {
	router   *Router
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new relay module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		router: NewRouter(NewSessionRegistry(), NewRoomIndex(), nil),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// SetSender wires the delivery backend. Called from main.go before the
// application starts.
func (m *Module) SetSender(s Sender) {
	m.router.sender = s
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.MediaSharedV1.ToBase(),
		events.RoomSwitchedV1.ToBase(),
	}
}

// Start validates the wiring.
func (m *Module) Start(ctx context.Context) error {
	if m.router.sender == nil {
		return fmt.Errorf("delivery sender not set")
	}
	m.logger.Info("Relay module started", "defaultRoom", DefaultRoom)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	sessions, rooms := m.router.Stats()
	m.logger.Info("Relay module stopped", "sessions", sessions, "rooms", rooms)
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	sessions, rooms := m.router.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"sessions": sessions,
			"rooms":    rooms,
		},
	}
}

// Router exposes the routing core for tests and direct wiring.
func (m *Module) Router() *Router {
	return m.router
}

// Join handles a join event from connID.
func (m *Module) Join(connID, username, room string) {
	sess := m.router.HandleJoin(connID, username, room)
	m.logger.Info("User joined", "connID", connID, "username", sess.Username, "room", sess.Room)
	m.publishJoined(sess)
}

// SendMessage handles a send-message event from connID. Events from
// unjoined connections are dropped silently.
func (m *Module) SendMessage(connID, text string) {
	msg, ok := m.router.HandleMessage(connID, text)
	if !ok {
		m.logger.Debug("Dropped message from unjoined connection", "connID", connID)
		return
	}
	if m.eventBus == nil {
		return
	}
	evt := events.MessageSentEvent{
		MessageID: msg.ID,
		Username:  msg.Username,
		Room:      msg.Room,
		Length:    len(msg.Text),
		Timestamp: msg.Timestamp,
	}
	if err := events.MessageSentV1.Publish(m.eventBus, evt, nil); err != nil {
		m.logger.Warn("Failed to publish MessageSent event", "error", err)
	}
}

// SendMedia handles a send-media event from connID.
func (m *Module) SendMedia(connID string, media MediaInfo, caption string) {
	msg, ok := m.router.HandleMedia(connID, media, caption)
	if !ok {
		m.logger.Debug("Dropped media from unjoined connection", "connID", connID)
		return
	}
	if m.eventBus == nil {
		return
	}
	evt := events.MediaSharedEvent{
		MessageID: msg.ID,
		Username:  msg.Username,
		Room:      msg.Room,
		MimeType:  msg.Media.MimeType,
		Size:      msg.Media.Size,
		Timestamp: msg.Timestamp,
	}
	if err := events.MediaSharedV1.Publish(m.eventBus, evt, nil); err != nil {
		m.logger.Warn("Failed to publish MediaShared event", "error", err)
	}
}

// Typing handles a typing event from connID.
func (m *Module) Typing(connID string) {
	m.router.HandleTyping(connID)
}

// StopTyping handles a stop-typing event from connID.
func (m *Module) StopTyping(connID string) {
	m.router.HandleStopTyping(connID)
}

// SwitchRoom handles a switch-room event from connID.
func (m *Module) SwitchRoom(connID, newRoom string) {
	sess, prev, ok := m.router.HandleSwitchRoom(connID, newRoom)
	if !ok {
		return
	}
	m.logger.Info("User switched room", "connID", connID, "from", prev, "to", sess.Room)
	if m.eventBus == nil {
		return
	}
	evt := events.RoomSwitchedEvent{
		ConnectionID: sess.ID,
		Username:     sess.Username,
		FromRoom:     prev,
		ToRoom:       sess.Room,
		Timestamp:    time.Now(),
	}
	if err := events.RoomSwitchedV1.Publish(m.eventBus, evt, nil); err != nil {
		m.logger.Warn("Failed to publish RoomSwitched event", "error", err)
	}
}

// Disconnect handles a transport-level disconnect for connID. Safe to
// call more than once for the same connection.
func (m *Module) Disconnect(connID string) {
	sess, ok := m.router.HandleDisconnect(connID)
	if !ok {
		return
	}
	m.logger.Info("User disconnected", "connID", connID, "username", sess.Username, "room", sess.Room)
	if m.eventBus == nil {
		return
	}
	evt := events.UserLeftEvent{
		ConnectionID: sess.ID,
		Username:     sess.Username,
		Room:         sess.Room,
		Timestamp:    time.Now(),
	}
	if err := events.UserLeftV1.Publish(m.eventBus, evt, nil); err != nil {
		m.logger.Warn("Failed to publish UserLeft event", "error", err)
	}
}

func (m *Module) publishJoined(sess Session) {
	if m.eventBus == nil {
		return
	}
	evt := events.UserJoinedEvent{
		ConnectionID: sess.ID,
		Username:     sess.Username,
		Room:         sess.Room,
		Timestamp:    time.Now(),
	}
	if err := events.UserJoinedV1.Publish(m.eventBus, evt, nil); err != nil {
		m.logger.Warn("Failed to publish UserJoined event", "error", err)
	}
}
