// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("object not found")

// Metadata keys attached to every stored object.
const (
	MetaFilename = "filename" // original filename as declared at upload
	MetaSlug     = "slug"     // short-link slug minted at upload, if any
)

// ObjectInfo describes a stored object without its payload.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	UserMetadata map[string]string
}

// Object is a stored object opened for reading. The caller owns Body
// and must close it.
type Object struct {
	Info ObjectInfo
	Body io.ReadCloser
}

// ObjectStore is the interface for durable blob storage keyed by string path.
type ObjectStore interface {
	// Put streams data to the store under the given key with content type
	// and custom metadata attached.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error
	// Get opens the object at key for reading.
	Get(ctx context.Context, key string) (*Object, error)
	// Stat fetches object metadata without the payload.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// List returns up to limit objects with keys after startAfter, plus a
	// flag indicating whether more objects remain. Ordering is store-defined.
	List(ctx context.Context, startAfter string, limit int) ([]ObjectInfo, bool, error)
	// SetUserMetadata rewrites the custom metadata of an existing object
	// in place, preserving its payload and content type.
	SetUserMetadata(ctx context.Context, key string, metadata map[string]string) error
}
