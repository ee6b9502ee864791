// Package alias manages short-link bindings from slugs to object keys.
//
// The index is a plain key→value view with per-entry optional expiry. It is
// deliberately not enumerable: live aliases are only addressable by slug, so
// catalog views recover slugs from each object's own metadata instead.
package alias

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no live (non-expired) alias exists for a slug.
var ErrNotFound = errors.New("alias not found")

// ErrExhausted is returned when the allocator runs out of candidate retries.
var ErrExhausted = errors.New("slug allocation retries exhausted")

// Index is the key→value store holding slug bindings.
type Index interface {
	// GetTarget returns the object key bound to slug, or ErrNotFound when
	// the slug is absent or expired.
	GetTarget(ctx context.Context, slug string) (string, error)
	// Bind atomically creates the slug→targetKey binding. ttl <= 0 means
	// the alias never expires. Returns false when a live binding already
	// holds the slug; expired bindings are reclaimed in the same call.
	Bind(ctx context.Context, slug, targetKey string, ttl time.Duration) (bool, error)
	// Delete removes the binding for slug, reporting ErrNotFound when absent.
	Delete(ctx context.Context, slug string) error
}
