package storage

import (
	"context"
	"io"
	"time"
)

// Storage is the minimal interface an image storage backend implements.
// Backends are interchangeable; the upload pipeline and query engine only
// see this interface.
type Storage interface {
	// Put stores an object at the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Get retrieves an object by its key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object by its key. Returns nil if it doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the permanent public URL for a key, or "" if the backend
	// only serves presigned URLs.
	URL(key string) string

	// SignedURL returns a time-limited retrieval URL. Backends with public
	// URLs return those instead.
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
