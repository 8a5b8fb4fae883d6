// Package blob abstracts the durable object store holding encoded tile images
// and OGP previews. Keys are content-addressed by logical coordinates.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no object.
var ErrNotFound = errors.New("blob not found")

// Store is the durable blob store consumed by the tile service and the
// cleanup job.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Size returns the stored object size in bytes without fetching the body.
	Size(ctx context.Context, key string) (int64, error)
	// List returns all keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
