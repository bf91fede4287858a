package uploads

import "errors"

// Sentinel errors for upload gateway operations.
var (
	// ErrTypeNotAllowed is returned when the extension or declared MIME
	// type is outside the allow-list.
	ErrTypeNotAllowed = errors.New("file type not allowed")

	// ErrTooLarge is returned when the file exceeds the size ceiling.
	ErrTooLarge = errors.New("file exceeds maximum size")

	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("file not found")
)
