package storage

import (
	"context"
	"io"
)

// FileEmitter writes generated files under the skip-if-exists policy.
type FileEmitter interface {
	// Emit writes content to path unless path exists and overwrite is false.
	// It reports whether the file was written.
	Emit(path, content string, overwrite bool) (bool, error)

	// EmitOnce writes content to path only if path does not exist yet.
	EmitOnce(path, content string) (bool, error)

	// EnsureDir creates dir and its parents, failing when dir exists as a file.
	EnsureDir(dir string) error
}

// ObjectStorage defines the object storage operations used to mirror generated files
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
