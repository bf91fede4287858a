package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/chat-relay/modules/activity"
	"github.com/example/chat-relay/modules/relay"
	"github.com/example/chat-relay/modules/uploads"
	"github.com/example/chat-relay/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	port := getEnv("PORT", "3000")
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	storagePath := getEnv("STORAGE_PATH", "/tmp/chat-relay")
	bucket := getEnv("UPLOAD_BUCKET", "uploads")
	staticDir := getEnv("STATIC_DIR", "./public")
	maxFileSize := getEnvInt64("MAX_UPLOAD_SIZE", uploads.DefaultMaxFileSize)

	log.Println("=== Chat Relay ===")
	log.Printf("Port: %s", port)
	log.Printf("Upload bucket: %s (max %d bytes)", bucket, maxFileSize)

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(storagePath),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	relayModule := relay.NewModule(app.Logger())
	uploadsModule := uploads.NewModule(uploads.Config{
		NatsURL:     natsURL,
		Bucket:      bucket,
		MaxFileSize: maxFileSize,
	}, app.Logger())
	activityModule := activity.NewModule(app.Logger())
	serverModule := wsserver.NewModule(":"+port, staticDir, relayModule, uploadsModule, app.Logger())

	// The relay computes fan-out; the server's connection table delivers it.
	relayModule.SetSender(serverModule.Sender())

	// Register modules: independent modules first, then dependents
	app.Register(relayModule)
	app.Register(uploadsModule)
	app.Register(activityModule)
	app.Register(serverModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(port)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(port string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("HTTP endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health          - Health check")
	log.Println("  POST   /upload          - Upload media (field: media)")
	log.Println("  GET    /uploads/:name   - Retrieve uploaded media")
	log.Println("")
	log.Printf("WebSocket endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Inbound:  join, send-message, send-media, typing, stop-typing, switch-room")
	log.Println("  Outbound: user-joined, user-left, room-users, new-message, user-typing, user-stopped-typing")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64 returns environment variable as int64 or default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int64 value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}
