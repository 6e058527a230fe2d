//go:build !gcp

package store

import (
	"context"
	"fmt"
)

func newGCSStore(ctx context.Context, cfg Config) (Store, error) {
	return nil, fmt.Errorf("store: GCS support is not enabled in this build (use -tags gcp)")
}
