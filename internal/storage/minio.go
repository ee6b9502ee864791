package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible) backend.
// To switch providers, change STORAGE_ENDPOINT and credentials — no code changes
// are needed for any S3-compatible store.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a MinIO client, ensures the bucket exists, and returns
// a ready-to-use MinioStore.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Msg("storage: created bucket")
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put streams reader to the bucket under key. size must be the exact byte count
// (pass -1 only if the size is genuinely unknown — MinIO will buffer it).
func (s *MinioStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Get opens the object at key. The returned Body must be closed by the caller.
func (s *MinioStore) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr("get", key, err)
	}

	// GetObject is lazy; Stat forces the request so missing keys surface here.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapMinioErr("stat", key, err)
	}

	return &Object{Info: toObjectInfo(info), Body: obj}, nil
}

// Stat fetches object metadata without downloading the payload.
func (s *MinioStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapMinioErr("stat", key, err)
	}
	oi := toObjectInfo(info)
	return &oi, nil
}

// Delete removes the object at key from the bucket. Deleting a missing key
// reports ErrNotFound so callers can surface it.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	// S3 deletes are idempotent and do not report missing keys, so check first.
	if _, err := s.Stat(ctx, key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// List returns up to limit objects with keys lexically after startAfter.
func (s *MinioStore) List(ctx context.Context, startAfter string, limit int) ([]ObjectInfo, bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive:  true,
		StartAfter: startAfter,
	})

	var infos []ObjectInfo
	for obj := range objects {
		if obj.Err != nil {
			return nil, false, fmt.Errorf("list objects: %w", obj.Err)
		}
		if len(infos) == limit {
			// One extra entry means the listing is truncated.
			return infos, true, nil
		}
		infos = append(infos, toObjectInfo(obj))
	}
	return infos, false, nil
}

// SetUserMetadata rewrites the object's custom metadata with a server-side
// copy onto itself, preserving payload and content type.
func (s *MinioStore) SetUserMetadata(ctx context.Context, key string, metadata map[string]string) error {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return mapMinioErr("stat", key, err)
	}

	replaced := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		replaced[k] = v
	}
	// The REPLACE metadata directive drops the content type unless restated.
	replaced["Content-Type"] = info.ContentType

	_, err = s.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          s.bucket,
			Object:          key,
			UserMetadata:    replaced,
			ReplaceMetadata: true,
		},
		minio.CopySrcOptions{
			Bucket: s.bucket,
			Object: key,
		},
	)
	if err != nil {
		return fmt.Errorf("replace metadata on %q: %w", key, err)
	}
	return nil
}

// toObjectInfo converts a minio ObjectInfo, lowercasing user metadata keys
// (S3 canonicalizes them in transit).
func toObjectInfo(info minio.ObjectInfo) ObjectInfo {
	md := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		md[strings.ToLower(k)] = v
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		UserMetadata: md,
	}
}

// mapMinioErr converts S3 "no such key" errors to ErrNotFound.
func mapMinioErr(op, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return ErrNotFound
	}
	return fmt.Errorf("%s object %q: %w", op, key, err)
}
