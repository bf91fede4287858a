package activity

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/chat-relay/events"
)

// Module consumes relay events off the EventBus and keeps a running
// activity tally. It is purely observational: nothing the clients see
// depends on it.
type Module struct {
	logger types.Logger

	joins    atomic.Int64
	leaves   atomic.Int64
	messages atomic.Int64
	media    atomic.Int64
	switches atomic.Int64
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Start initializes the module.
func (m *Module) Start(ctx context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop logs the final tallies.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Activity module stopped",
		"joins", m.joins.Load(),
		"leaves", m.leaves.Load(),
		"messages", m.messages.Load(),
		"media", m.media.Load(),
		"switches", m.switches.Load())
	return nil
}

// Health returns the health status with the running tallies.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"joins":    m.joins.Load(),
			"leaves":   m.leaves.Load(),
			"messages": m.messages.Load(),
			"media":    m.media.Load(),
			"switches": m.switches.Load(),
		},
	}
}

// RegisterEventConsumers registers handlers for all relay events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MediaSharedV1, m.handleMediaShared, m,
	); err != nil {
		return fmt.Errorf("failed to register MediaShared consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomSwitchedV1, m.handleRoomSwitched, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomSwitched consumer: %w", err)
	}

	m.logger.Info("Registered activity event consumers")
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.joins.Add(1)
	m.logger.Info("Activity: user joined", "username", event.Username, "room", event.Room)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.leaves.Add(1)
	m.logger.Info("Activity: user left", "username", event.Username, "room", event.Room)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.messages.Add(1)
	m.logger.Debug("Activity: message sent", "room", event.Room, "length", event.Length)
	return nil
}

func (m *Module) handleMediaShared(_ context.Context, event events.MediaSharedEvent, _ *mono.Msg) error {
	m.media.Add(1)
	m.logger.Info("Activity: media shared", "room", event.Room, "mimetype", event.MimeType, "size", event.Size)
	return nil
}

func (m *Module) handleRoomSwitched(_ context.Context, event events.RoomSwitchedEvent, _ *mono.Msg) error {
	m.switches.Add(1)
	m.logger.Info("Activity: room switched", "username", event.Username, "from", event.FromRoom, "to", event.ToRoom)
	return nil
}
