package relay

import (
	"context"
	"testing"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newMockLogger() types.Logger {
	return &mockLogger{}
}

func TestModule_Name(t *testing.T) {
	m := NewModule(newMockLogger())
	if name := m.Name(); name != "relay" {
		t.Errorf("Name() = %q, want 'relay'", name)
	}
}

func TestModule_StartRequiresSender(t *testing.T) {
	m := NewModule(newMockLogger())
	ctx := context.Background()

	if err := m.Start(ctx); err == nil {
		t.Error("Start() without a sender should fail")
	}

	m.SetSender(&fakeSender{})
	if err := m.Start(ctx); err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestModule_EmitEvents(t *testing.T) {
	m := NewModule(newMockLogger())
	if got := len(m.EmitEvents()); got != 5 {
		t.Errorf("EmitEvents() declares %d events, want 5", got)
	}
}

func TestModule_OperationsWithoutBus(t *testing.T) {
	m := NewModule(newMockLogger())
	sender := &fakeSender{}
	m.SetSender(sender)

	// No EventBus wired: operations still run and deliver.
	m.Join("c1", "Alice", "")
	m.Join("c2", "Bob", "")
	m.SendMessage("c1", "hello")
	m.SendMedia("c1", MediaInfo{URL: "/uploads/x.png", MimeType: "image/png"}, "look")
	m.Typing("c1")
	m.StopTyping("c1")
	m.SwitchRoom("c1", "side")
	m.Disconnect("c1")
	m.Disconnect("c1")
	m.Disconnect("c2")

	if got := len(sender.byEvent(EventNewMessage)); got != 4 {
		t.Errorf("new-message deliveries = %d, want 4", got)
	}

	health := m.Health(context.Background())
	if !health.Healthy {
		t.Error("Health() = unhealthy")
	}
	if got := health.Details["sessions"].(int); got != 0 {
		t.Errorf("sessions = %d, want 0", got)
	}
	if got := health.Details["rooms"].(int); got != 0 {
		t.Errorf("rooms = %d, want 0", got)
	}
}
