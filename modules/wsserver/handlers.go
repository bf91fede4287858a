package wsserver

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/example/chat-relay/modules/relay"
	"github.com/example/chat-relay/modules/uploads"
)

// contentTypeByExt maps allow-listed file extensions to MIME types, for
// uploads whose multipart part carries no Content-Type header.
var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// Handlers contains the HTTP and WebSocket handlers.
type Handlers struct {
	relay   *relay.Module
	uploads *uploads.Service
	table   *connTable
	logger  types.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(relayMod *relay.Module, gateway *uploads.Service, table *connTable, logger types.Logger) *Handlers {
	return &Handlers{
		relay:   relayMod,
		uploads: gateway,
		table:   table,
		logger:  logger,
	}
}

// Upload handles media upload requests (POST /upload, field "media").
func (h *Handlers) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("media")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "filename", header.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "filename", header.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = detectContentType(header.Filename)
	}

	stored, err := h.uploads.Upload(c.Context(), header.Filename, contentType, data)
	if err != nil {
		// Validation rejections surface as the generic failure, same as
		// storage errors.
		h.logger.Warn("Upload rejected", "filename", header.Filename, "mimetype", contentType, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}

	h.logger.Info("File uploaded", "stored", stored.Filename, "size", stored.Size)
	return c.JSON(fiber.Map{
		"success": true,
		"file":    stored,
	})
}

// ServeUpload handles read-only retrieval of stored media
// (GET /uploads/:name).
func (h *Handlers) ServeUpload(c *fiber.Ctx) error {
	name := c.Params("name")
	data, info, err := h.uploads.Fetch(c.Context(), name)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "File not found",
			})
		}
		h.logger.Error("Failed to fetch stored file", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}

	c.Set(fiber.HeaderContentType, info.ContentType)
	return c.Send(data)
}

// UploadInfo returns a stored file's metadata without its content
// (GET /uploads/:name/info), so clients can render an attachment
// before downloading it.
func (h *Handlers) UploadInfo(c *fiber.Ctx) error {
	name := c.Params("name")
	info, err := h.uploads.Stat(c.Context(), name)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "File not found",
			})
		}
		h.logger.Error("Failed to stat stored file", "name", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Upload failed",
		})
	}

	return c.JSON(fiber.Map{
		"filename": info.Name,
		"size":     info.Size,
		"mimetype": info.ContentType,
		"modtime":  info.ModTime,
	})
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     "chat-relay",
		"connections": h.table.count(),
	})
}

// detectContentType determines the content type based on file extension.
func detectContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType, ok := contentTypeByExt[ext]; ok {
		return contentType
	}
	return "application/octet-stream"
}
