//go:build gcp

package store

import "context"

func newGCSStore(ctx context.Context, cfg Config) (Store, error) {
	return NewGCSStore(ctx, GCSStoreConfig{
		Bucket: cfg.GCS.Bucket,
		Prefix: cfg.GCS.Prefix,
	})
}
