package alias

import (
	"context"
	"fmt"
	"time"

	"github.com/filedrop/service/internal/storage"
)

// DefaultShareTTL is applied when a share request does not choose a TTL.
const DefaultShareTTL = 24 * time.Hour

// ShareResult is the outcome of minting a short link for an existing object.
type ShareResult struct {
	Slug      string `json:"slug"`
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Service contains the business logic for short-link minting and resolution.
type Service struct {
	idx     Index
	alloc   *Allocator
	store   storage.ObjectStore
	baseURL string
}

// NewService creates a new alias Service.
func NewService(idx Index, alloc *Allocator, store storage.ObjectStore, baseURL string) *Service {
	return &Service{idx: idx, alloc: alloc, store: store, baseURL: baseURL}
}

// Share mints a TTL-bound short link for an existing object key.
// The key must reference an object at mint time; afterwards the binding is
// allowed to dangle if the object is deleted.
func (s *Service) Share(ctx context.Context, key string, ttl time.Duration) (*ShareResult, error) {
	if ttl <= 0 {
		ttl = DefaultShareTTL
	}

	if _, err := s.store.Stat(ctx, key); err != nil {
		return nil, fmt.Errorf("stat share target: %w", err)
	}

	res, err := s.alloc.Allocate(ctx, key, ttl)
	if err != nil {
		return nil, err
	}

	return &ShareResult{
		Slug:      res.Slug,
		Key:       key,
		URL:       s.baseURL + "/s/" + res.Slug,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

// Resolve returns the canonical download URL for the object bound to slug.
// Absent and expired slugs both report ErrNotFound.
func (s *Service) Resolve(ctx context.Context, slug string) (string, error) {
	target, err := s.idx.GetTarget(ctx, slug)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/f/" + target, nil
}

// Unbind removes the binding for slug. The target object is untouched.
func (s *Service) Unbind(ctx context.Context, slug string) error {
	return s.idx.Delete(ctx, slug)
}
