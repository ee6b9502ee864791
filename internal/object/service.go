package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/filedrop/service/internal/alias"
	"github.com/filedrop/service/internal/config"
	"github.com/filedrop/service/internal/middleware"
	"github.com/filedrop/service/internal/storage"
)

// ErrSizeExceeded is returned when a payload (declared or actual) exceeds the
// configured maximum.
var ErrSizeExceeded = errors.New("file exceeds maximum upload size")

// ErrMimeBlocked is returned when the declared content type matches the
// blocked-pattern list.
var ErrMimeBlocked = errors.New("content type is blocked")

// ErrMimeNotAllowed is returned when an allowed-pattern list is configured and
// the declared content type matches none of its entries.
var ErrMimeNotAllowed = errors.New("content type is not allowed")

// List limits. Every returned item costs one extra metadata fetch, so the
// hard cap bounds the fan-out of a single request.
const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	// listStatConcurrency bounds parallel metadata fetches during listing.
	listStatConcurrency = 8
)

// UploadInput carries one incoming file through the upload pipeline.
type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	// SizeHint is the declared payload size in bytes, or -1 when unknown.
	// A hint over the limit fails fast before any payload bytes are read.
	SizeHint int64
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	URL         string `json:"url"`
	FullURL     string `json:"fullUrl"`
	ShortURL    string `json:"shortUrl,omitempty"`
	Slug        string `json:"slug,omitempty"`
}

// CatalogItem is one display-ready row of the admin catalog.
type CatalogItem struct {
	Key         string `json:"key"`
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	UploadedAt  string `json:"uploadedAt"`
	URL         string `json:"url"`
	FullURL     string `json:"fullUrl"`
	Slug        string `json:"slug,omitempty"`
	ShortURL    string `json:"shortUrl,omitempty"`
}

// Catalog is one page of the admin listing.
type Catalog struct {
	Items     []CatalogItem `json:"items"`
	Truncated bool          `json:"truncated"`
	Cursor    string        `json:"cursor,omitempty"`
}

// Service contains the business logic for the object lifecycle.
// alloc may be nil, in which case uploads never mint short links.
type Service struct {
	store storage.ObjectStore
	alloc *alias.Allocator
	cfg   *config.Config
}

// NewService creates a new object Service.
func NewService(store storage.ObjectStore, alloc *alias.Allocator, cfg *config.Config) *Service {
	return &Service{store: store, alloc: alloc, cfg: cfg}
}

// Upload validates and persists one incoming file.
//
// Order matters: the size hint and MIME policy reject before any payload byte
// is read, the actual length is re-checked after materializing the payload,
// and the short-link bind only happens once the store write has been
// confirmed, so an aborted upload can never leave a referencable alias.
// Alias minting is best-effort: on failure the result simply carries no
// short link.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.SizeHint > s.cfg.MaxUploadBytes {
		return nil, ErrSizeExceeded
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.checkMimePolicy(contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Reader, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, ErrSizeExceeded
	}

	key := GenerateKey(in.Filename)
	metadata := map[string]string{storage.MetaFilename: in.Filename}

	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType, metadata); err != nil {
		middleware.ObjectOperations.WithLabelValues("put", "error").Inc()
		return nil, fmt.Errorf("persist object: %w", err)
	}
	middleware.ObjectOperations.WithLabelValues("put", "ok").Inc()

	result := &UploadResult{
		Key:         key,
		Filename:    in.Filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		URL:         "/f/" + key,
		FullURL:     s.cfg.PublicBaseURL + "/f/" + key,
	}

	if s.alloc != nil {
		res, err := s.alloc.Allocate(ctx, key, 0)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("upload stored without short link")
			return result, nil
		}
		result.Slug = res.Slug
		result.ShortURL = s.cfg.PublicBaseURL + "/s/" + res.Slug

		// Stamp the slug into the object's own metadata so the catalog can
		// recover it later; the binding itself is already durable.
		metadata[storage.MetaSlug] = res.Slug
		if err := s.store.SetUserMetadata(ctx, key, metadata); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("could not record slug in object metadata")
		}
	}

	return result, nil
}

// checkMimePolicy applies the blocked list, then the allowed list. Both are
// substring matches against the declared type; the blocked list always wins.
func (s *Service) checkMimePolicy(contentType string) error {
	for _, p := range s.cfg.BlockedMimeTypes {
		if strings.Contains(contentType, p) {
			return ErrMimeBlocked
		}
	}
	if len(s.cfg.AllowedMimeTypes) == 0 {
		return nil
	}
	for _, p := range s.cfg.AllowedMimeTypes {
		if strings.Contains(contentType, p) {
			return nil
		}
	}
	return ErrMimeNotAllowed
}

// Fetch opens the object stored under key. The caller owns the returned Body.
func (s *Service) Fetch(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.ObjectOperations.WithLabelValues("get", "not_found").Inc()
		} else {
			middleware.ObjectOperations.WithLabelValues("get", "error").Inc()
		}
		return nil, err
	}
	middleware.ObjectOperations.WithLabelValues("get", "ok").Inc()
	return obj, nil
}

// Delete removes the object stored under key. A short link bound to the key
// is left in place and dangles; the data model accepts that.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	middleware.ObjectOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// List returns one page of the catalog. limit is clamped to MaxListLimit and
// defaults to DefaultListLimit. Each row is enriched with a per-object
// metadata fetch to recover the original filename and upload-time slug; a
// failed fetch degrades that row to listing-level data instead of failing
// the page. Ordering is store-defined.
func (s *Service) List(ctx context.Context, cursor string, limit int) (*Catalog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	infos, truncated, err := s.store.List(ctx, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	items := make([]CatalogItem, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listStatConcurrency)
	for i, info := range infos {
		g.Go(func() error {
			items[i] = s.catalogItem(gctx, info)
			return nil
		})
	}
	_ = g.Wait()

	cat := &Catalog{Items: items, Truncated: truncated}
	if truncated && len(infos) > 0 {
		cat.Cursor = infos[len(infos)-1].Key
	}
	return cat, nil
}

// catalogItem builds one row, preferring per-object metadata over the
// listing entry when the extra fetch succeeds.
func (s *Service) catalogItem(ctx context.Context, info storage.ObjectInfo) CatalogItem {
	item := CatalogItem{
		Key:         info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		UploadedAt:  info.LastModified.UTC().Format("2006-01-02T15:04:05Z07:00"),
		URL:         "/f/" + info.Key,
		FullURL:     s.cfg.PublicBaseURL + "/f/" + info.Key,
	}

	stat, err := s.store.Stat(ctx, info.Key)
	if err != nil {
		log.Debug().Err(err).Str("key", info.Key).Msg("catalog: metadata fetch failed, using listing data")
		return item
	}

	item.ContentType = stat.ContentType
	item.Filename = stat.UserMetadata[storage.MetaFilename]
	if slug := stat.UserMetadata[storage.MetaSlug]; slug != "" {
		item.Slug = slug
		item.ShortURL = s.cfg.PublicBaseURL + "/s/" + slug
	}
	return item
}
