// Package store provides clients for the backing key/value store that
// holds all published records. The gateway only ever issues point reads;
// Put and Exists are provided for tooling and tests.
package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Read when no record exists at the key.
var ErrKeyNotFound = errors.New("store: key not found")

// Store defines the contract for the backing key/value store.
// Keys are canonical record URIs (e.g. "immutable://owner/builds/b1/index.html").
type Store interface {
	// Read retrieves the record stored at key.
	// Returns ErrKeyNotFound if the key is absent.
	Read(ctx context.Context, key string) ([]byte, error)

	// Put stores value at key, overwriting any existing record.
	Put(ctx context.Context, key string, value []byte) error

	// Exists reports whether a record exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}
