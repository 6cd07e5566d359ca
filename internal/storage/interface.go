package storage

import "context"

// Client abstracts where finished artifacts land: the local filesystem or
// a GCS bucket. Paths are slash-separated and relative to the client's
// base; parent directories are created on demand.
type Client interface {
	// Close releases any client resources
	Close() error

	// StoreFile writes data at the given relative path. Implementations
	// must not leave a partial file behind on failure.
	StoreFile(ctx context.Context, relPath string, data []byte) error

	// Exists reports whether an artifact already exists at the path
	Exists(ctx context.Context, relPath string) (bool, error)

	// List returns the relative paths of stored artifacts under a prefix,
	// sorted lexically.
	List(ctx context.Context, prefix string) ([]string, error)

	// Location returns a human-readable absolute location for a relative
	// path, for logs and result reports.
	Location(relPath string) string
}
