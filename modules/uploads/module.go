package uploads

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Config holds the upload gateway configuration.
type Config struct {
	NatsURL     string
	Bucket      string
	MaxFileSize int64
}

// Module owns the object store connection and exposes the upload
// gateway service.
type Module struct {
	cfg     Config
	store   *JetStreamObjectStore
	service *Service
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new uploads module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "uploads"
}

// Start connects to the object store and initializes the bucket.
func (m *Module) Start(ctx context.Context) error {
	store, err := NewJetStreamObjectStore(m.cfg.NatsURL, m.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to initialize bucket %q: %w", m.cfg.Bucket, err)
	}

	m.store = store
	m.service = NewService(store, m.cfg.MaxFileSize)

	m.logger.Info("Uploads module started",
		"bucket", m.cfg.Bucket,
		"maxFileSize", m.service.MaxFileSize())
	return nil
}

// Stop closes the object store connection.
func (m *Module) Stop(ctx context.Context) error {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return err
		}
	}
	m.logger.Info("Uploads module stopped")
	return nil
}

// Health returns the health status, including the stored object count.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	connected := m.store != nil && m.store.IsConnected()
	msg := "operational"
	details := map[string]any{
		"bucket": m.cfg.Bucket,
	}
	if !connected {
		msg = "object store disconnected"
	} else if count, err := m.service.Count(ctx); err == nil {
		details["objects"] = count
	}
	return mono.HealthStatus{
		Healthy: connected,
		Message: msg,
		Details: details,
	}
}

// Service returns the upload gateway service.
func (m *Module) Service() *Service {
	return m.service
}
