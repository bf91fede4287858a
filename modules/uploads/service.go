package uploads

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the per-file size ceiling, 50 MiB.
const DefaultMaxFileSize = 50 * 1024 * 1024

// URLPrefix is the fixed path prefix under which stored files are
// served back read-only.
const URLPrefix = "/uploads/"

// allowedExtensions is the upload allow-list: image, video and audio
// formats plus pdf, doc/docx and plain text.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".m4a":  true,
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

// allowedMimeTypes holds the exact non-media MIME types we accept;
// image/*, audio/* and video/* are accepted by prefix.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// StoredFile is the metadata returned for a persisted upload.
type StoredFile struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	URL          string `json:"url"`
}

// Service is the upload gateway: it validates an inbound file against
// the allow-list and size ceiling, persists it under a unique name and
// returns its retrieval metadata.
type Service struct {
	store   ObjectStore
	maxSize int64
}

// NewService creates a new upload gateway over the given store.
func NewService(store ObjectStore, maxSize int64) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Service{
		store:   store,
		maxSize: maxSize,
	}
}

// sanitizeFilename removes path separators and dangerous characters
// from a client-supplied filename.
func sanitizeFilename(filename string) string {
	clean := filepath.Base(filepath.Clean(filename))
	clean = strings.ReplaceAll(clean, "/", "_")
	clean = strings.ReplaceAll(clean, "\\", "_")
	if clean == "." || clean == ".." || clean == "" {
		return "unnamed"
	}
	return clean
}

// typeAllowed reports whether the extension and declared MIME type are
// both inside the allow-list.
func typeAllowed(ext, mimeType string) bool {
	if !allowedExtensions[strings.ToLower(ext)] {
		return false
	}
	mt := strings.ToLower(mimeType)
	if strings.HasPrefix(mt, "image/") || strings.HasPrefix(mt, "audio/") || strings.HasPrefix(mt, "video/") {
		return true
	}
	return allowedMimeTypes[mt]
}

// storedName builds a name guaranteed unique even under concurrent
// uploads: a high-resolution timestamp plus a random component, keeping
// the original extension.
func storedName(ext string) string {
	return fmt.Sprintf("media-%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], strings.ToLower(ext))
}

// Upload validates and persists one file, returning its metadata.
func (s *Service) Upload(ctx context.Context, originalName, mimeType string, data []byte) (*StoredFile, error) {
	safeName := sanitizeFilename(originalName)
	ext := filepath.Ext(safeName)

	if !typeAllowed(ext, mimeType) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrTypeNotAllowed, safeName, mimeType)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	name := storedName(ext)
	info, err := s.store.Put(ctx, name, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	return &StoredFile{
		Filename:     name,
		OriginalName: safeName,
		Size:         int64(info.Size),
		MimeType:     mimeType,
		URL:          URLPrefix + name,
	}, nil
}

// Fetch retrieves a stored file's bytes and metadata by stored name.
func (s *Service) Fetch(ctx context.Context, name string) ([]byte, *ObjectInfo, error) {
	// Stored names never contain path separators; reject anything that
	// does before touching the store.
	if name == "" || name != sanitizeFilename(name) {
		return nil, nil, ErrNotFound
	}
	return s.store.Get(ctx, name)
}

// Stat retrieves a stored file's metadata without reading its content.
func (s *Service) Stat(ctx context.Context, name string) (*ObjectInfo, error) {
	if name == "" || name != sanitizeFilename(name) {
		return nil, ErrNotFound
	}
	return s.store.GetInfo(ctx, name)
}

// Count returns the number of stored files.
func (s *Service) Count(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(objects), nil
}

// MaxFileSize returns the configured per-file ceiling.
func (s *Service) MaxFileSize() int64 {
	return s.maxSize
}
