//go:build gcp

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSStore implements Store using Google Cloud Storage. Record URIs are
// flattened into object names the same way as S3Store.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

// NewGCSStore creates a GCS-backed record store.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("store: gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) objectName(key string) string {
	return s.prefix + strings.Replace(key, "://", "/", 1)
}

func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("store: gcs get %s: %w", key, err)
	}
	defer func() { _ = r.Close() }()

	value, err := io.ReadAll(io.LimitReader(r, maxRecordSize))
	if err != nil {
		return nil, fmt.Errorf("store: gcs read body: %w", err)
	}
	return value, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, value []byte) error {
	w := s.client.Bucket(s.bucket).Object(s.objectName(key)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("store: gcs write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("store: gcs commit %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(s.objectName(key)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("store: gcs attrs %s: %w", key, err)
	}
	return true, nil
}
