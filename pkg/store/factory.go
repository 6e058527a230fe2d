package store

import (
	"context"
	"fmt"
)

// Type identifies a backing store implementation.
type Type string

const (
	TypeMemory Type = "memory"
	TypeRemote Type = "remote"
	TypeRedis  Type = "redis"
	TypeS3     Type = "s3"
	TypeGCS    Type = "gcs"
)

// Config selects and configures a backing store implementation.
type Config struct {
	Type   Type
	Remote RemoteStoreConfig
	Redis  RedisStoreConfig
	S3     S3StoreConfig
	GCS    struct {
		Bucket string
		Prefix string
	}
}

// FromConfig creates the backing store selected by cfg.Type.
func FromConfig(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeRemote:
		return NewRemoteStore(cfg.Remote)
	case TypeRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case TypeS3:
		return NewS3Store(ctx, cfg.S3)
	case TypeGCS:
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("store: unsupported store type: %s", cfg.Type)
	}
}
