package wsserver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/chat-relay/modules/relay"
	"github.com/example/chat-relay/modules/uploads"
)

// maxBodySize bounds inbound HTTP bodies. It is above the upload
// gateway's own per-file ceiling so an oversize file is rejected by the
// gateway (generic failure response) rather than by the transport.
const maxBodySize = 100 * 1024 * 1024

// Module runs the Fiber server carrying the websocket event channel,
// the upload endpoint and read-only media retrieval.
type Module struct {
	app        *fiber.App
	handlers   *Handlers
	table      *connTable
	relayMod   *relay.Module
	uploadsMod *uploads.Module
	addr       string
	staticDir  string
	logger     types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new websocket server module.
func NewModule(addr, staticDir string, relayMod *relay.Module, uploadsMod *uploads.Module, moduleLogger types.Logger) *Module {
	return &Module{
		table:      newConnTable(moduleLogger),
		relayMod:   relayMod,
		uploadsMod: uploadsMod,
		addr:       addr,
		staticDir:  staticDir,
		logger:     moduleLogger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

// Sender exposes the connection table as the relay's delivery backend.
func (m *Module) Sender() relay.Sender {
	return m.table
}

// Start initializes and starts the server.
func (m *Module) Start(ctx context.Context) error {
	if m.relayMod == nil {
		return fmt.Errorf("relay module not set")
	}
	// The uploads module is registered before this one, so its gateway
	// service exists by the time we start.
	if m.uploadsMod == nil || m.uploadsMod.Service() == nil {
		return fmt.Errorf("uploads module not started")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Chat Relay",
		DisableStartupMessage: true,
		BodyLimit:             maxBodySize,
		ErrorHandler:          m.errorHandler,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.handlers = NewHandlers(m.relayMod, m.uploadsMod.Service(), m.table, m.logger)
	m.registerRoutes()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("WebSocket server started", "addr", m.addr)
	return nil
}

// Stop closes all live connections and shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	m.table.closeAll()
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("WebSocket server stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":        m.addr,
			"connections": m.table.count(),
		},
	}
}

// registerRoutes sets up all HTTP and WebSocket routes.
func (m *Module) registerRoutes() {
	m.app.Get("/health", m.handlers.HealthCheck)

	// WebSocket upgrade middleware
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	m.app.Post("/upload", m.handlers.Upload)
	m.app.Get("/uploads/:name", m.handlers.ServeUpload)
	m.app.Get("/uploads/:name/info", m.handlers.UploadInfo)

	if m.staticDir != "" {
		m.app.Static("/", m.staticDir)
	}
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	m.logger.Error("HTTP error", "code", code, "message", message, "error", err)

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
